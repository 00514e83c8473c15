// internal/output/mysql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

var mysqlDialect = &dialect{
	name:       "mysql",
	driverName: "mysql",
	maxIdent:   MaxMySQLIdentifierLength,
	quote: func(identifier string) string {
		return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
	},
	createDDL: func(table string) string {
		return "CREATE TABLE IF NOT EXISTS `" + table + "` (" + `
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			price DOUBLE NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			xpath TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
	},
	insertSQL: func(table string) string {
		return "INSERT INTO " + table + " (price, title, url, xpath) VALUES (?, ?, ?, ?)"
	},
	recentSQL: func(table string) string {
		return "SELECT id, price, title, url, xpath, created_at FROM " + table + " ORDER BY id DESC LIMIT ?"
	},
	configure: func(db *sql.DB) {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(10 * time.Minute)
	},
}

// NewMySQLSink connects to MySQL. The DSN is normalized so timestamps scan into
// time.Time and text is stored as utf8mb4.
func NewMySQLSink(ctx context.Context, dsn, table string) (*SQLSink, error) {
	if dsn == "" {
		return nil, fmt.Errorf("MySQL connection string is required")
	}

	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	return openSQLSink(ctx, mysqlDialect, normalized, table)
}

func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}
