package googlesheets

import (
	"time"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

// Config represents configuration specific to Google Sheets adapter
type Config struct {
	SpreadsheetID string
	SheetName     string
}

// DefaultStoreConfig returns the recommended store configuration for Google Sheets.
// The Sheets API quota is per minute, so retries back off further than local adapters.
func DefaultStoreConfig() *sheetcrud.Config {
	return &sheetcrud.Config{
		MaxRetries:    3,
		RetryInterval: 20 * time.Second,
	}
}
