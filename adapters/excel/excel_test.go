package excel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/internal/storetest"
	"github.com/xuri/excelize/v2"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name: "valid config",
			config: &Config{
				FilePath:  "test.xlsx",
				SheetName: "Sheet1",
			},
		},
		{
			name:    "missing file path",
			config:  &Config{SheetName: "Sheet1"},
			wantErr: ErrMissingFilePath,
		},
		{
			name:    "missing sheet name",
			config:  &Config{FilePath: "test.xlsx"},
			wantErr: ErrMissingSheetName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error but got none")
	}
}

func newTestAdapter(t *testing.T) (*Adapter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "contacts.xlsx")
	adapter, err := New(&Config{
		FilePath:    path,
		SheetName:   "Contacts",
		LockTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	return adapter, path
}

func TestAdapter_Suite(t *testing.T) {
	storetest.RunAdapterSuite(t, func(t *testing.T) sheetcrud.Adapter {
		adapter, _ := newTestAdapter(t)
		return adapter
	})
}

func TestAdapter_LoadSave(t *testing.T) {
	adapter, path := newTestAdapter(t)
	ctx := context.Background()

	schema := []string{"name", "age", "active", "score"}
	records := []*sheetcrud.Record{
		{ID: "b2", Values: map[string]interface{}{"name": "Bob", "age": int64(25), "active": false, "score": 1.5}},
		{ID: "a1", Values: map[string]interface{}{"name": "Alice", "age": int64(30), "active": true}},
	}

	if err := adapter.Save(ctx, records, schema); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Excel file was not created: %v", err)
	}

	// the id column is written first
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open saved file: %v", err)
	}
	first, _ := f.GetCellValue("Contacts", "A1")
	f.Close()
	if first != sheetcrud.IDColumn {
		t.Errorf("A1 = %q, want %q", first, sheetcrud.IDColumn)
	}

	loaded, loadedSchema, err := adapter.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loadedSchema) != len(schema) {
		t.Errorf("Load() schema = %v, want %v", loadedSchema, schema)
	}
	if len(loaded) != 2 {
		t.Fatalf("Load() got %d records, want 2", len(loaded))
	}

	// stored order is kept
	bob := loaded[0]
	if bob.ID != "b2" {
		t.Errorf("first record id = %q, want b2", bob.ID)
	}
	// cells come back as their text
	if age, ok := bob.Values["age"].(string); !ok || age != "25" {
		t.Errorf("age = %v (%T), want \"25\"", bob.Values["age"], bob.Values["age"])
	}
	if active, ok := bob.Values["active"].(string); !ok || !strings.EqualFold(active, "false") {
		t.Errorf("active = %v, want FALSE", bob.Values["active"])
	}
	if score, ok := bob.Values["score"].(string); !ok || score != "1.5" {
		t.Errorf("score = %v, want \"1.5\"", bob.Values["score"])
	}
}

func TestAdapter_KeepsOtherSheets(t *testing.T) {
	adapter, path := newTestAdapter(t)
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "notes")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to seed workbook: %v", err)
	}
	f.Close()

	records, schema := storetest.SampleRecords()
	if err := adapter.Save(ctx, records, schema); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := adapter.Save(ctx, records[:1], schema); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to open saved file: %v", err)
	}
	defer f.Close()

	notes, _ := f.GetCellValue("Sheet1", "A1")
	if notes != "notes" {
		t.Errorf("Sheet1!A1 = %q, want notes", notes)
	}
	rows, _ := f.GetRows("Contacts")
	if len(rows) != 2 {
		t.Errorf("Contacts has %d rows, want header plus one record", len(rows))
	}
}

func TestAdapter_LoadWithoutIDColumn(t *testing.T) {
	adapter, path := newTestAdapter(t)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Contacts")
	f.SetSheetRow("Contacts", "A1", &[]interface{}{"name", "email"})
	f.SetSheetRow("Contacts", "A2", &[]interface{}{"Alice", "a@x.com"})
	f.SetSheetRow("Contacts", "A4", &[]interface{}{"Bob", "b@x.com"})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to seed workbook: %v", err)
	}
	f.Close()

	records, schema, err := adapter.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(schema) != 2 || schema[0] != "name" || schema[1] != "email" {
		t.Errorf("Load() schema = %v, want [name email]", schema)
	}
	// the blank third row is skipped
	if len(records) != 2 {
		t.Fatalf("Load() got %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.ID != "" {
			t.Errorf("record id = %q, want empty for a sheet without id column", r.ID)
		}
	}
}

func TestAdapter_Locked(t *testing.T) {
	adapter, path := newTestAdapter(t)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}

	other := flock.New(path + ".lock")
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("Failed to take lock: locked=%v err=%v", locked, err)
	}
	defer other.Unlock()

	err = adapter.Save(context.Background(), nil, []string{"name"})
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Save() error = %v, want ErrLocked", err)
	}
}

func TestColumnName(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{702, "ZZ"},
		{703, "AAA"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := columnName(tt.col); got != tt.want {
				t.Errorf("columnName(%d) = %s, want %s", tt.col, got, tt.want)
			}
		})
	}
}

func TestAdapter_SessionKeepsTextValues(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()
	config := &sheetcrud.Config{MaxRetries: 1, RetryInterval: time.Millisecond}

	names := []string{"007", "1.50", "Infinity", "TRUE", "山田\n太郎"}
	session := sheetcrud.NewSession(sheetcrud.NewStore(adapter, config), sheetcrud.ContactVariant)
	if err := session.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for _, name := range names {
		if err := session.New(); err != nil {
			t.Fatal(err)
		}
		if err := session.SubmitInputs(map[string]string{"name": name, "age": "30", "email": "x@example.com"}); err != nil {
			t.Fatalf("SubmitInputs(%q) error = %v", name, err)
		}
		if _, err := session.Commit(ctx); err != nil {
			t.Fatalf("Commit(%q) error = %v", name, err)
		}
	}

	// 新しいセッションで読み直しても値は変わらない
	reloaded := sheetcrud.NewSession(sheetcrud.NewStore(adapter, config), sheetcrud.ContactVariant)
	if err := reloaded.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	records := reloaded.Records()
	if len(records) != len(names) {
		t.Fatalf("reloaded %d records, want %d", len(records), len(names))
	}
	for i, r := range records {
		if got := r.Values["name"]; got != names[i] {
			t.Errorf("name[%d] = %#v (%T), want %q", i, got, got, names[i])
		}
		if got := r.Values["age"]; got != int64(30) {
			t.Errorf("age[%d] = %#v (%T), want int64 30", i, got, got)
		}
		if got := r.Values["email"]; got != "x@example.com" {
			t.Errorf("email[%d] = %#v", i, got)
		}
	}
}
