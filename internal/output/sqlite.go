// internal/output/sqlite.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var sqliteDialect = &dialect{
	name:       "sqlite",
	driverName: "sqlite3",
	maxIdent:   MaxSQLiteIdentifierLength,
	quote: func(identifier string) string {
		return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
	},
	createDDL: func(table string) string {
		return `CREATE TABLE IF NOT EXISTS [` + table + `] (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			price REAL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			xpath TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
	},
	insertSQL: func(table string) string {
		return "INSERT INTO " + table + " (price, title, url, xpath) VALUES (?, ?, ?, ?)"
	},
	recentSQL: func(table string) string {
		return "SELECT id, price, title, url, xpath, created_at FROM " + table + " ORDER BY id DESC LIMIT ?"
	},
	configure: func(db *sql.DB) {
		db.SetMaxOpenConns(1) // SQLite works best with single writer
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	},
	initStmts: []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = memory",
	},
}

// NewSQLiteSink opens (and creates if needed) the SQLite database at path
func NewSQLiteSink(ctx context.Context, path, table string) (*SQLSink, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL"
	return openSQLSink(ctx, sqliteDialect, dsn, table)
}
