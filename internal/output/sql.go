// internal/output/sql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valpere/PriceScrapexter/internal/errors"
)

// dialect captures what differs between the SQL databases a SQLSink can write to
type dialect struct {
	name       string
	driverName string
	maxIdent   int
	quote      func(identifier string) string
	createDDL  func(table string) string
	insertSQL  func(table string) string
	recentSQL  func(table string) string
	configure  func(db *sql.DB)
	initStmts  []string
}

// SQLSink stores records in a relational table with the schema
// (id, price, title, url, xpath, created_at).
type SQLSink struct {
	db          *sql.DB
	dialect     *dialect
	table       string
	insertQuery string
	recentQuery string

	closeOnce sync.Once
	closeErr  error
}

func openSQLSink(ctx context.Context, d *dialect, dsn, table string) (*SQLSink, error) {
	if err := ValidateSQLIdentifier(table, d.maxIdent); err != nil {
		return nil, fmt.Errorf("invalid %s table name: %w", d.name, err)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", d.name, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name, err)
	}

	if d.configure != nil {
		d.configure(db)
	}

	for _, stmt := range d.initStmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	quoted := d.quote(table)
	if _, err := db.ExecContext(ctx, d.createDDL(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table '%s': %w", table, err)
	}

	return &SQLSink{
		db:          db,
		dialect:     d,
		table:       table,
		insertQuery: d.insertSQL(quoted),
		recentQuery: d.recentSQL(quoted),
	}, nil
}

// Save implements Sink
func (s *SQLSink) Save(ctx context.Context, rec Record) error {
	var price sql.NullFloat64
	if rec.Price != nil {
		price = sql.NullFloat64{Float64: *rec.Price, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, s.insertQuery, price, rec.Title, rec.URL, rec.XPath); err != nil {
		return errors.New(errors.KindSink, "insert into "+s.table, err)
	}
	return nil
}

// Recent implements Sink
func (s *SQLSink) Recent(ctx context.Context, limit int) ([]StoredProduct, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, s.recentQuery, limit)
	if err != nil {
		return nil, errors.New(errors.KindSink, "query "+s.table, err)
	}
	defer rows.Close()

	var products []StoredProduct
	for rows.Next() {
		var (
			id        int64
			p         StoredProduct
			price     sql.NullFloat64
			createdAt time.Time
		)
		if err := rows.Scan(&id, &price, &p.Title, &p.URL, &p.XPath, &createdAt); err != nil {
			return nil, errors.New(errors.KindSink, "scan "+s.table, err)
		}
		p.ID = strconv.FormatInt(id, 10)
		p.CreatedAt = createdAt
		if price.Valid {
			v := price.Float64
			p.Price = &v
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.KindSink, "read "+s.table, err)
	}
	return products, nil
}

// Ping checks the database is reachable
func (s *SQLSink) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.New(errors.KindSink, "ping "+s.dialect.name, err)
	}
	return nil
}

// Close closes the database connection. Calls made after Close fail with
// "sql: database is closed" instead of racing on the handle.
func (s *SQLSink) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Dialect returns the database flavour, e.g. "sqlite"
func (s *SQLSink) Dialect() string {
	return s.dialect.name
}
