// internal/output/postgresql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

var postgresDialect = &dialect{
	name:       "postgres",
	driverName: "postgres",
	maxIdent:   MaxPostgreSQLIdentifierLength,
	quote: func(identifier string) string {
		return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
	},
	createDDL: func(table string) string {
		return `CREATE TABLE IF NOT EXISTS "` + table + `" (
			id BIGSERIAL PRIMARY KEY,
			price DOUBLE PRECISION,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			xpath TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	},
	insertSQL: func(table string) string {
		return "INSERT INTO " + table + " (price, title, url, xpath) VALUES ($1, $2, $3, $4)"
	},
	recentSQL: func(table string) string {
		return "SELECT id, price, title, url, xpath, created_at FROM " + table + " ORDER BY id DESC LIMIT $1"
	},
	configure: func(db *sql.DB) {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	},
}

// NewPostgreSQLSink connects to PostgreSQL using a lib/pq connection string
func NewPostgreSQLSink(ctx context.Context, dsn, table string) (*SQLSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	return openSQLSink(ctx, postgresDialect, dsn, table)
}
