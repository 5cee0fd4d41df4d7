package sheetcrud

import (
	"fmt"
	"sort"
	"sync"
)

// WorkingSet is the ordered in-memory collection of records for one session.
// Insertion order is display order.
type WorkingSet struct {
	mu      sync.RWMutex
	records []*Record      // 表示順
	index   map[string]int // ID -> records内の位置
	schema  []string       // カラム名のリスト (idを除く)
}

// NewWorkingSet creates an empty WorkingSet
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		index:  make(map[string]int),
		schema: []string{},
	}
}

// Load replaces all data with the provided records. Records without an id, or
// whose id repeats an earlier record, are given a fresh id from newID.
// It returns the number of ids that had to be assigned.
func (w *WorkingSet) Load(records []*Record, schema []string, newID func() string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if newID == nil {
		newID = NewID
	}

	w.records = make([]*Record, 0, len(records))
	w.index = make(map[string]int, len(records))
	w.schema = make([]string, 0, len(schema))
	for _, col := range schema {
		if col != IDColumn {
			w.schema = append(w.schema, col)
		}
	}

	assigned := 0
	for _, record := range records {
		if record == nil {
			continue
		}
		r := record.Clone()
		if _, dup := w.index[r.ID]; r.ID == "" || dup {
			r.ID = w.freshIDLocked(newID)
			assigned++
		}
		w.index[r.ID] = len(w.records)
		w.records = append(w.records, r)
		w.updateSchema(r)
	}
	return assigned
}

func (w *WorkingSet) freshIDLocked(newID func() string) string {
	for {
		id := newID()
		if _, taken := w.index[id]; id != "" && !taken {
			return id
		}
	}
}

// Get retrieves a copy of the record with the given id
func (w *WorkingSet) Get(id string) (*Record, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	i, ok := w.index[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return w.records[i].Clone(), nil
}

// Contains reports whether a record with the id exists
func (w *WorkingSet) Contains(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, ok := w.index[id]
	return ok
}

// Append adds a new record at the end (fails if the id already exists)
func (w *WorkingSet) Append(record *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if record.ID == "" {
		return ErrMissingID
	}
	if _, exists := w.index[record.ID]; exists {
		return ErrDuplicateID
	}

	w.index[record.ID] = len(w.records)
	w.records = append(w.records, record.Clone())
	w.updateSchema(record)
	return nil
}

// Replace swaps the record with the same id in place, keeping its position
func (w *WorkingSet) Replace(record *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i, ok := w.index[record.ID]
	if !ok {
		return ErrRecordNotFound
	}
	w.records[i] = record.Clone()
	w.updateSchema(record)
	return nil
}

// Delete removes the record with the given id, keeping the relative order of
// the rest
func (w *WorkingSet) Delete(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i, ok := w.index[id]
	if !ok {
		return ErrRecordNotFound
	}

	w.records = append(w.records[:i], w.records[i+1:]...)
	delete(w.index, id)
	for j := i; j < len(w.records); j++ {
		w.index[w.records[j].ID] = j
	}
	return nil
}

// All returns copies of all records in display order
func (w *WorkingSet) All() []*Record {
	w.mu.RLock()
	defer w.mu.RUnlock()

	records := make([]*Record, len(w.records))
	for i, r := range w.records {
		records[i] = r.Clone()
	}
	return records
}

// Query searches for records matching the given conditions, in display order
func (w *WorkingSet) Query(query Query) ([]*Record, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	return ApplyQuery(w.All(), query), nil
}

// Len returns the number of records
func (w *WorkingSet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.records)
}

// Schema returns the current value column schema
func (w *WorkingSet) Schema() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	schema := make([]string, len(w.schema))
	copy(schema, w.schema)
	return schema
}

// SetSchema replaces the column order, keeping columns records still need
func (w *WorkingSet) SetSchema(schema []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.schema = make([]string, 0, len(schema))
	for _, col := range schema {
		if col != IDColumn {
			w.schema = append(w.schema, col)
		}
	}
	for _, r := range w.records {
		w.updateSchema(r)
	}
}

// updateSchema appends columns of the record that the schema does not know yet
func (w *WorkingSet) updateSchema(record *Record) {
	existing := make(map[string]bool, len(w.schema))
	for _, col := range w.schema {
		existing[col] = true
	}

	// マップの反復順は不定なので、新規カラムは名前順で追加する
	var added []string
	for col := range record.Values {
		if col != IDColumn && !existing[col] {
			added = append(added, col)
		}
	}
	sort.Strings(added)
	w.schema = append(w.schema, added...)
}

// MergeSchemas merges current schema with sheet schema preserving order
func MergeSchemas(current, sheet []string) []string {
	inCurrent := make(map[string]bool, len(current))
	for _, col := range current {
		inCurrent[col] = true
	}

	result := make([]string, 0, len(current))
	seen := make(map[string]bool)

	// First, keep existing sheet columns in their order
	for _, col := range sheet {
		if inCurrent[col] && !seen[col] {
			result = append(result, col)
			seen[col] = true
		}
	}

	// Then, append new columns from current schema
	for _, col := range current {
		if !seen[col] {
			result = append(result, col)
			seen[col] = true
		}
	}

	return result
}
