// Package storetest provides an in-memory adapter and a conformance suite
// shared by the adapter tests.
package storetest

import (
	"context"
	"sync"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

// MemoryAdapter keeps records in memory and records every save.
type MemoryAdapter struct {
	mu      sync.Mutex
	records []*sheetcrud.Record
	schema  []string

	// LoadErr and SaveErr, when set, are returned by the next calls.
	LoadErr error
	SaveErr error

	// FailSaves makes that many upcoming saves fail with SaveErr, then
	// succeed. Zero with SaveErr set fails every save.
	FailSaves int

	Loads int
	Saves [][]*sheetcrud.Record
}

// NewMemoryAdapter creates an adapter pre-filled with records
func NewMemoryAdapter(records []*sheetcrud.Record, schema []string) *MemoryAdapter {
	return &MemoryAdapter{
		records: cloneAll(records),
		schema:  append([]string(nil), schema...),
	}
}

// Load returns copies of the stored records
func (m *MemoryAdapter) Load(ctx context.Context) ([]*sheetcrud.Record, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.Loads++
	if m.LoadErr != nil {
		return nil, nil, m.LoadErr
	}
	return cloneAll(m.records), append([]string(nil), m.schema...), nil
}

// Save replaces the stored records
func (m *MemoryAdapter) Save(ctx context.Context, records []*sheetcrud.Record, schema []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	m.Saves = append(m.Saves, cloneAll(records))
	if m.SaveErr != nil {
		if m.FailSaves == 0 {
			return m.SaveErr
		}
		m.FailSaves--
		if m.FailSaves == 0 {
			defer func() { m.SaveErr = nil }()
		}
		return m.SaveErr
	}
	m.records = cloneAll(records)
	m.schema = append([]string(nil), schema...)
	return nil
}

// Records returns what the adapter currently holds
func (m *MemoryAdapter) Records() []*sheetcrud.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.records)
}

// SaveCount returns the number of save calls so far
func (m *MemoryAdapter) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saves)
}

func cloneAll(records []*sheetcrud.Record) []*sheetcrud.Record {
	out := make([]*sheetcrud.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
