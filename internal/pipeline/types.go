// internal/pipeline/types.go
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// ProductRow is one validated input record.
type ProductRow struct {
	Title string `yaml:"title" json:"title"`
	URL   string `yaml:"url" json:"url"`
	XPath string `yaml:"xpath" json:"xpath"`
}

// Failure describes why a row produced no price.
type Failure struct {
	Kind    errors.Kind `yaml:"kind" json:"kind"`
	Reason  string      `yaml:"reason,omitempty" json:"reason,omitempty"`
	Message string      `yaml:"message" json:"message"`
}

// Outcome is the result of processing exactly one row. Price is nil iff Failure is set.
type Outcome struct {
	Row      ProductRow    `yaml:"row" json:"row"`
	Domain   string        `yaml:"domain" json:"domain"`
	Price    *float64      `yaml:"price" json:"price"`
	Failure  *Failure      `yaml:"failure,omitempty" json:"failure,omitempty"`
	SinkErr  string        `yaml:"sink_error,omitempty" json:"sink_error,omitempty"`
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// OK reports whether a price was extracted.
func (o Outcome) OK() bool {
	return o.Price != nil
}

// Record is what a sink persists for each processed row. A nil Price stores NULL.
type Record struct {
	Title string   `bson:"title" json:"title"`
	URL   string   `bson:"url" json:"url"`
	XPath string   `bson:"xpath" json:"xpath"`
	Price *float64 `bson:"price" json:"price"`
}

// NoticeKind distinguishes the per-row messages sent to the user.
type NoticeKind string

const (
	NoticePrice   NoticeKind = "price"
	NoticeFailure NoticeKind = "failure"
)

// Notice is a user-visible message emitted while a batch runs.
type Notice struct {
	Kind  NoticeKind `json:"kind"`
	Row   ProductRow `json:"row"`
	Price *float64   `json:"price,omitempty"`
}

// String renders the notice the way the chat front end used to phrase it.
func (n Notice) String() string {
	if n.Kind == NoticePrice && n.Price != nil {
		return fmt.Sprintf("Title: %s\n%s\n%s\nPrice: %s", n.Row.Title, n.Row.URL, n.Row.XPath, FormatPrice(*n.Price))
	}
	return fmt.Sprintf("Could not extract price for:\n %s\n%s\n%s", n.Row.Title, n.Row.URL, n.Row.XPath)
}

// DomainSummary is the aggregate for one domain. A nil Average means no data was collected.
type DomainSummary struct {
	Domain   string   `yaml:"domain" json:"domain"`
	Attempts int      `yaml:"attempts" json:"attempts"`
	Count    int      `yaml:"count" json:"count"`
	Average  *float64 `yaml:"average" json:"average"`
}

// Summary is the result of a whole batch.
type Summary struct {
	TotalRows int             `yaml:"total_rows" json:"total_rows"`
	Succeeded int             `yaml:"succeeded" json:"succeeded"`
	Failed    int             `yaml:"failed" json:"failed"`
	Domains   []DomainSummary `yaml:"domains" json:"domains"`
}

// Fetcher returns the text of the element at xpath on the page at url.
type Fetcher interface {
	FetchText(ctx context.Context, url, xpath string) (string, error)
}

// URLGuard refuses URLs that must not be navigated to.
type URLGuard interface {
	Check(ctx context.Context, rawURL string) error
}

// Sink persists one record per processed row.
type Sink interface {
	Save(ctx context.Context, rec Record) error
}

// Notifier delivers per-row notices to whoever started the batch.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Recorder observes outcomes, typically for metrics.
type Recorder interface {
	RecordOutcome(o Outcome)
	RecordSummary(s Summary)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify implements Notifier
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// FormatPrice prints a price without trailing zeros.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
