// internal/output/types.go
package output

import (
	"context"
	"time"

	"github.com/valpere/PriceScrapexter/internal/pipeline"
)

// Sink drivers accepted in SinkConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMSSQL    = "mssql"
	DriverMongoDB  = "mongodb"
	DriverNone     = "none"
)

// Record is one stored extraction result; a nil Price is stored as NULL.
type Record = pipeline.Record

// StoredProduct is a record read back from a sink, with the id and timestamp the
// sink assigned.
type StoredProduct struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	URL       string    `json:"url" yaml:"url"`
	XPath     string    `json:"xpath" yaml:"xpath"`
	Price     *float64  `json:"price" yaml:"price"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Sink is durable append-only storage for extraction results.
type Sink interface {
	// Save appends one record
	Save(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]StoredProduct, error)

	// Ping checks the connection is usable
	Ping(ctx context.Context) error

	// Close releases the connection
	Close() error
}

// SinkConfig selects and configures the result sink
type SinkConfig struct {
	Driver              string        `yaml:"driver" json:"driver"`
	DSN                 string        `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Path                string        `yaml:"path,omitempty" json:"path,omitempty"`
	Table               string        `yaml:"table,omitempty" json:"table,omitempty"`
	Database            string        `yaml:"database,omitempty" json:"database,omitempty"`
	Collection          string        `yaml:"collection,omitempty" json:"collection,omitempty"`
	Timeout             time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	PersistUnresolvable bool          `yaml:"persist_unresolvable" json:"persist_unresolvable"`
}

// DefaultSinkConfig returns the SQLite sink the bot always used
func DefaultSinkConfig() SinkConfig {
	return SinkConfig{
		Driver:     DriverSQLite,
		Path:       "bot_data.db",
		Table:      "products",
		Collection: "products",
		Timeout:    10 * time.Second,
	}
}

// NopSink discards every record
type NopSink struct{}

// Save implements Sink
func (NopSink) Save(ctx context.Context, rec Record) error { return nil }

// Recent implements Sink
func (NopSink) Recent(ctx context.Context, limit int) ([]StoredProduct, error) { return nil, nil }

// Ping implements Sink
func (NopSink) Ping(ctx context.Context) error { return nil }

// Close implements Sink
func (NopSink) Close() error { return nil }
