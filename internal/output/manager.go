// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/PriceScrapexter/internal/errors"
	"github.com/valpere/PriceScrapexter/internal/utils"
)

// NewSink opens the sink selected by cfg.Driver. Connection failures are
// returned as sink errors.
func NewSink(ctx context.Context, cfg SinkConfig, logger utils.Logger) (Sink, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	table := cfg.Table
	if table == "" {
		table = "products"
	}

	var (
		sink Sink
		err  error
	)
	switch cfg.Driver {
	case "", DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = cfg.DSN
		}
		sink, err = NewSQLiteSink(ctx, path, table)
	case DriverPostgres:
		sink, err = NewPostgreSQLSink(ctx, cfg.DSN, table)
	case DriverMySQL:
		sink, err = NewMySQLSink(ctx, cfg.DSN, table)
	case DriverMSSQL:
		sink, err = NewMSSQLSink(ctx, cfg.DSN, table)
	case DriverMongoDB:
		collection := cfg.Collection
		if collection == "" {
			collection = table
		}
		sink, err = NewMongoSink(ctx, cfg.DSN, cfg.Database, collection)
	case DriverNone:
		sink = NopSink{}
	default:
		err = fmt.Errorf("unsupported sink driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, errors.New(errors.KindSink, "open sink", err)
	}

	logger.WithField("component", "sink").Infof("result sink ready (driver=%s)", driverName(cfg.Driver))
	return sink, nil
}

func driverName(d string) string {
	if d == "" {
		return DriverSQLite
	}
	return d
}
