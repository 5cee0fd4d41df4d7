package googlesheets

import (
	"context"

	"github.com/ideamans/go-sheetcrud/internal/gauth"
	"google.golang.org/api/sheets/v4"
)

// NewWithJSONKeyFile creates a new SheetsAdaptor using a JSON key file.
// An empty path falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewWithJSONKeyFile(ctx context.Context, config Config, jsonPath string) (*SheetsAdaptor, error) {
	opts, err := gauth.FromJSONKeyFile(ctx, jsonPath, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}
	return NewSheetsAdaptor(ctx, config, opts...)
}

// NewWithJSONKeyData creates a new SheetsAdaptor using JSON key data
func NewWithJSONKeyData(ctx context.Context, config Config, jsonData []byte) (*SheetsAdaptor, error) {
	if _, err := gauth.ParseServiceAccountJSON(jsonData); err != nil {
		return nil, err
	}
	opts, err := gauth.FromJSONKeyData(ctx, jsonData, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}
	return NewSheetsAdaptor(ctx, config, opts...)
}

// NewWithServiceAccountKey creates a new SheetsAdaptor using service account email and private key
func NewWithServiceAccountKey(ctx context.Context, config Config, email, privateKey string) (*SheetsAdaptor, error) {
	return NewSheetsAdaptor(ctx, config, gauth.FromServiceAccountKey(ctx, email, privateKey, sheets.SpreadsheetsScope)...)
}

// NewWithDefaultCredentials creates a new SheetsAdaptor using Application Default Credentials
func NewWithDefaultCredentials(ctx context.Context, config Config) (*SheetsAdaptor, error) {
	opts, err := gauth.FromDefaultCredentials(ctx, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}
	return NewSheetsAdaptor(ctx, config, opts...)
}
