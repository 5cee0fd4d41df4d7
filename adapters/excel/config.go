package excel

import (
	"time"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

// Config holds configuration for Excel adapter
type Config struct {
	FilePath    string        // Path to the Excel file
	SheetName   string        // Name of the sheet to use
	LockTimeout time.Duration // How long to wait for the file lock; 0 means 5s
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	if c.SheetName == "" {
		return ErrMissingSheetName
	}
	return nil
}

func (c *Config) lockTimeout() time.Duration {
	if c.LockTimeout > 0 {
		return c.LockTimeout
	}
	return 5 * time.Second
}

// DefaultStoreConfig returns the recommended store configuration for Excel
func DefaultStoreConfig() *sheetcrud.Config {
	return &sheetcrud.Config{
		MaxRetries:    3,
		RetryInterval: 5 * time.Second,
	}
}
