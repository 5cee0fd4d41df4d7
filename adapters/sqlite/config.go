package sqlite

import (
	"errors"
	"regexp"
	"time"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

var (
	// ErrMissingPath is returned when no database path is configured
	ErrMissingPath = errors.New("database path is required")

	// ErrInvalidTable is returned when the table name is not a plain identifier
	ErrInvalidTable = errors.New("table name must match [A-Za-z_][A-Za-z0-9_]*")
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds configuration for the SQLite adapter
type Config struct {
	Path  string // database file, or ":memory:"
	Table string // records table; defaults to "records"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrMissingPath
	}
	if c.Table == "" {
		c.Table = "records"
	}
	if !tableName.MatchString(c.Table) {
		return ErrInvalidTable
	}
	return nil
}

// DefaultStoreConfig returns the recommended store configuration for SQLite.
// Busy databases are already retried per statement, so store retries stay short.
func DefaultStoreConfig() *sheetcrud.Config {
	return &sheetcrud.Config{
		MaxRetries:    2,
		RetryInterval: time.Second,
	}
}
