// pkg/api/types.go
package api

import (
	"fmt"

	"github.com/valpere/PriceScrapexter/internal/config"
	"github.com/valpere/PriceScrapexter/internal/ingest"
	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

// Re-export types from internal packages for public API
type Config = config.Config
type IngestOptions = ingest.Options
type ProductRow = pipeline.ProductRow
type Outcome = pipeline.Outcome
type Failure = pipeline.Failure
type Notice = pipeline.Notice
type Summary = pipeline.Summary
type DomainSummary = pipeline.DomainSummary
type Result = pipeline.Result

// DefaultConfig returns the configuration used when a section is omitted
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// BatchResponse is the body the server returns for a processed upload
type BatchResponse struct {
	Summary  Summary   `json:"summary"`
	Outcomes []Outcome `json:"outcomes"`
	Messages []string  `json:"messages"`

	// Partial is set when the batch stopped before every row was processed
	Partial bool `json:"partial,omitempty"`
}

// ErrorResponse is the body of a rejected request
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// APIError is returned by Client for any response other than 200
type APIError struct {
	StatusCode int
	Message    string
	Detail     string

	// Batch holds what was processed when the server stopped a batch early
	Batch *BatchResponse
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
