// internal/output/identifiers.go
package output

import (
	"fmt"
	"regexp"
	"strings"
)

// Database-specific identifier limits
const (
	MaxPostgreSQLIdentifierLength = 63
	MaxMySQLIdentifierLength      = 64
	MaxMSSQLIdentifierLength      = 128
	MaxSQLiteIdentifierLength     = 999
)

var (
	// starts with letter or underscore, contains letters, digits, underscores
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// Keywords reserved in at least one of the supported dialects
	reservedWords = map[string]bool{
		"ADD": true, "ALL": true, "ALTER": true, "AND": true, "ANY": true, "AS": true, "ASC": true,
		"BETWEEN": true, "BY": true, "CASE": true, "CHECK": true, "COLUMN": true, "CONSTRAINT": true,
		"CREATE": true, "CROSS": true, "CURRENT_TIMESTAMP": true, "DATABASE": true, "DEFAULT": true,
		"DELETE": true, "DESC": true, "DISTINCT": true, "DROP": true, "ELSE": true, "END": true,
		"EXISTS": true, "FOR": true, "FOREIGN": true, "FROM": true, "FULL": true, "GROUP": true,
		"HAVING": true, "IF": true, "IN": true, "INDEX": true, "INNER": true, "INSERT": true,
		"INTO": true, "IS": true, "JOIN": true, "KEY": true, "LEFT": true, "LIKE": true, "LIMIT": true,
		"NOT": true, "NULL": true, "OFFSET": true, "ON": true, "OR": true, "ORDER": true, "OUTER": true,
		"PRIMARY": true, "REFERENCES": true, "RIGHT": true, "SELECT": true, "SET": true, "TABLE": true,
		"THEN": true, "TO": true, "TOP": true, "UNION": true, "UNIQUE": true, "UPDATE": true,
		"USER": true, "USING": true, "VALUES": true, "VIEW": true, "WHEN": true, "WHERE": true, "WITH": true,
	}
)

// ValidateSQLIdentifier checks that identifier can be used unquoted as a table name
func ValidateSQLIdentifier(identifier string, maxLen int) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(identifier) > maxLen {
		return fmt.Errorf("identifier too long (max %d characters): %s", maxLen, identifier)
	}
	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("invalid identifier format: %s", identifier)
	}
	if reservedWords[strings.ToUpper(identifier)] {
		return fmt.Errorf("identifier is a reserved SQL keyword: %s", identifier)
	}
	return nil
}
