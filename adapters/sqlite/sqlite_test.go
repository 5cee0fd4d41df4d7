package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/internal/storetest"
)

func openTestAdapter(t *testing.T, path string) *Adapter {
	t.Helper()
	adapter, err := Open(Config{Path: path, Table: "contacts"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func TestAdapter_Suite(t *testing.T) {
	storetest.RunAdapterSuite(t, func(t *testing.T) sheetcrud.Adapter {
		return openTestAdapter(t, filepath.Join(t.TempDir(), "crud.db"))
	})
}

func TestAdapter_Memory(t *testing.T) {
	storetest.RunAdapterSuite(t, func(t *testing.T) sheetcrud.Adapter {
		return openTestAdapter(t, ":memory:")
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "valid", config: Config{Path: "x.db", Table: "speech_items"}},
		{name: "default table", config: Config{Path: "x.db"}},
		{name: "missing path", config: Config{Table: "t"}, wantErr: ErrMissingPath},
		{name: "injection", config: Config{Path: "x.db", Table: `t"; DROP TABLE t; --`}, wantErr: ErrInvalidTable},
		{name: "leading digit", config: Config{Path: "x.db", Table: "1t"}, wantErr: ErrInvalidTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdapter_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crud.db")
	ctx := context.Background()

	records := []*sheetcrud.Record{
		{ID: "z", Values: map[string]interface{}{"title": "Hello", "count": int64(3), "ratio": 0.25, "draft": true}},
		{ID: "a", Values: map[string]interface{}{"title": "World", "note": nil}},
	}
	schema := []string{"title", "count", "ratio", "draft"}

	first := openTestAdapter(t, path)
	if err := first.Save(ctx, records, schema); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := openTestAdapter(t, path)
	got, gotSchema, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(gotSchema) != len(schema) {
		t.Fatalf("schema = %v, want %v", gotSchema, schema)
	}
	for i := range schema {
		if gotSchema[i] != schema[i] {
			t.Errorf("schema[%d] = %s, want %s", i, gotSchema[i], schema[i])
		}
	}

	if len(got) != 2 || got[0].ID != "z" || got[1].ID != "a" {
		t.Fatalf("records out of order: %+v", got)
	}
	if v, ok := got[0].Values["count"].(int64); !ok || v != 3 {
		t.Errorf("count = %v (%T), want int64 3", got[0].Values["count"], got[0].Values["count"])
	}
	if v, ok := got[0].Values["ratio"].(float64); !ok || v != 0.25 {
		t.Errorf("ratio = %v, want 0.25", got[0].Values["ratio"])
	}
	if v, ok := got[0].Values["draft"].(bool); !ok || !v {
		t.Errorf("draft = %v, want true", got[0].Values["draft"])
	}
	if _, ok := got[1].Values["note"]; ok {
		t.Errorf("nil values should not be stored: %+v", got[1].Values)
	}
}

func TestAdapter_SaveRejectsDuplicateIDs(t *testing.T) {
	adapter := openTestAdapter(t, ":memory:")
	ctx := context.Background()

	records, schema := storetest.SampleRecords()
	if err := adapter.Save(ctx, records, schema); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dup := []*sheetcrud.Record{
		{ID: "x", Values: map[string]interface{}{"name": "One"}},
		{ID: "x", Values: map[string]interface{}{"name": "Two"}},
	}
	if err := adapter.Save(ctx, dup, schema); err == nil {
		t.Fatal("expected duplicate ids to fail")
	}

	// the failed transaction leaves the previous contents in place
	got, _, err := adapter.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := storetest.EqualRecords(got, records); err != nil {
		t.Error(err)
	}
}
