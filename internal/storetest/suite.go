package storetest

import (
	"context"
	"fmt"
	"testing"

	sheetcrud "github.com/ideamans/go-sheetcrud"
)

// Factory returns a fresh, empty adapter for one subtest
type Factory func(t *testing.T) sheetcrud.Adapter

// SampleRecords returns the contact fixture used by the suite
func SampleRecords() ([]*sheetcrud.Record, []string) {
	schema := []string{"name", "age", "email"}
	records := []*sheetcrud.Record{
		{ID: "1", Values: map[string]interface{}{"name": "Alice", "age": int64(30), "email": "a@x.com"}},
		{ID: "2", Values: map[string]interface{}{"name": "Bob", "age": int64(25), "email": "b@x.com"}},
		{ID: "3", Values: map[string]interface{}{"name": "Carol", "email": "c@x.com"}},
	}
	return records, schema
}

// TextRecords returns values that look like numbers or booleans but are text
func TextRecords() ([]*sheetcrud.Record, []string) {
	schema := []string{"name", "note"}
	records := []*sheetcrud.Record{
		{ID: "007", Values: map[string]interface{}{"name": "007", "note": "1.50"}},
		{ID: "t", Values: map[string]interface{}{"name": "TRUE", "note": "Infinity"}},
		{ID: "n", Values: map[string]interface{}{"name": "NaN", "note": "-0"}},
		{ID: "ja", Values: map[string]interface{}{"name": "音声テスト", "note": "一行目\n二行目\n三行目"}},
	}
	return records, schema
}

// RunAdapterSuite checks the Adapter contract: full-replace saves, stored
// order, and load/save round trips.
func RunAdapterSuite(t *testing.T, newAdapter Factory) {
	ctx := context.Background()

	t.Run("Load empty store", func(t *testing.T) {
		adapter := newAdapter(t)
		records, _, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Load() got %d records, want 0", len(records))
		}
	})

	t.Run("Save and Load", func(t *testing.T) {
		adapter := newAdapter(t)
		want, schema := SampleRecords()
		if err := adapter.Save(ctx, want, schema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, gotSchema, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := EqualRecords(got, want); err != nil {
			t.Error(err)
		}
		for i, col := range schema {
			if i >= len(gotSchema) || gotSchema[i] != col {
				t.Errorf("Load() schema = %v, want %v", gotSchema, schema)
				break
			}
		}
	})

	t.Run("Round trip", func(t *testing.T) {
		adapter := newAdapter(t)
		want, schema := SampleRecords()
		if err := adapter.Save(ctx, want, schema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		loaded, loadedSchema, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := adapter.Save(ctx, loaded, loadedSchema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		again, _, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := EqualRecords(again, want); err != nil {
			t.Error(err)
		}
	})

	t.Run("Text values keep their text", func(t *testing.T) {
		adapter := newAdapter(t)
		want, schema := TextRecords()
		if err := adapter.Save(ctx, want, schema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, _, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("Load() got %d records, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].ID != want[i].ID {
				t.Errorf("record[%d].ID = %q, want %q", i, got[i].ID, want[i].ID)
			}
			for col, w := range want[i].Values {
				if g := got[i].Values[col]; g != w {
					t.Errorf("record[%d].%s = %#v (%T), want %#v", i, col, g, g, w)
				}
			}
		}
	})

	t.Run("Save replaces previous contents", func(t *testing.T) {
		adapter := newAdapter(t)
		records, schema := SampleRecords()
		if err := adapter.Save(ctx, records, schema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		shorter := records[1:2]
		if err := adapter.Save(ctx, shorter, schema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, _, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := EqualRecords(got, shorter); err != nil {
			t.Error(err)
		}
	})

	t.Run("Save empty data", func(t *testing.T) {
		adapter := newAdapter(t)
		records, schema := SampleRecords()
		if err := adapter.Save(ctx, records, schema); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := adapter.Save(ctx, []*sheetcrud.Record{}, schema); err != nil {
			t.Fatalf("Save() with empty data error = %v", err)
		}

		got, _, err := adapter.Load(ctx)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Load() got %d records after empty save, want 0", len(got))
		}
	})

	t.Run("Context cancellation", func(t *testing.T) {
		adapter := newAdapter(t)
		cancelCtx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, _, err := adapter.Load(cancelCtx); err == nil {
			t.Errorf("Load() with cancelled context should return error")
		}
		if err := adapter.Save(cancelCtx, []*sheetcrud.Record{}, []string{}); err == nil {
			t.Errorf("Save() with cancelled context should return error")
		}
	})
}

// EqualRecords compares records by id, order and value text
func EqualRecords(got, want []*sheetcrud.Record) error {
	if len(got) != len(want) {
		return fmt.Errorf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			return fmt.Errorf("record[%d].ID = %q, want %q", i, got[i].ID, want[i].ID)
		}
		for col := range want[i].Values {
			g := got[i].GetAsString(col, "<missing>")
			w := want[i].GetAsString(col, "<missing>")
			if g != w {
				return fmt.Errorf("record[%d].%s = %q, want %q", i, col, g, w)
			}
		}
		for col, v := range got[i].Values {
			if _, ok := want[i].Values[col]; !ok && v != "" && v != nil {
				return fmt.Errorf("record[%d] has unexpected column %s = %v", i, col, v)
			}
		}
	}
	return nil
}
