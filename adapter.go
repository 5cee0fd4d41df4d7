package sheetcrud

import "context"

// Adapter is the persistence collaborator behind a session. A backing store
// is either a spreadsheet or a local file; the workflow never depends on which.
type Adapter interface {
	// Load retrieves all records, in stored order, and the value column schema
	Load(ctx context.Context) ([]*Record, []string, error)

	// Save replaces the entire contents of the store with the given records
	Save(ctx context.Context, records []*Record, schema []string) error
}
