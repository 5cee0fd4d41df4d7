package googlesheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/internal/storetest"
	"google.golang.org/api/option"
)

func testStoreConfig() *sheetcrud.Config {
	return &sheetcrud.Config{
		MaxRetries:    3,
		RetryInterval: 10 * time.Millisecond,
	}
}

func TestSheetsAdaptor_LoadWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		failCount int32
		wantErr   bool
		wantCalls int32
	}{
		{name: "success on first try", failCount: 0, wantCalls: 1},
		{name: "success after one retry", failCount: 1, wantCalls: 2},
		{name: "success after two retries", failCount: 2, wantCalls: 3},
		{name: "gives up after max retries", failCount: 10, wantErr: true, wantCalls: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var callCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&callCount, 1) <= tt.failCount {
					w.WriteHeader(http.StatusServiceUnavailable)
					w.Write([]byte(`{"error": {"code": 503, "message": "Service Unavailable"}}`))
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"values": [["id", "name"], ["1", "John"]]}`))
			}))
			defer server.Close()

			ctx := context.Background()
			adaptor, err := NewSheetsAdaptor(ctx, Config{
				SpreadsheetID: "test-id",
				SheetName:     "TestSheet",
			}, option.WithEndpoint(server.URL), option.WithoutAuthentication())
			if err != nil {
				t.Fatalf("Failed to create adaptor: %v", err)
			}

			store := sheetcrud.NewStore(adaptor, testStoreConfig())
			records, _, err := store.Load(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var readErr *sheetcrud.ReadError
				if !errors.As(err, &readErr) {
					t.Errorf("Load() error = %T, want *sheetcrud.ReadError", err)
				}
			} else if len(records) != 1 || records[0].ID != "1" {
				t.Errorf("Load() records = %v, want the single row with id 1", records)
			}

			if got := atomic.LoadInt32(&callCount); got != tt.wantCalls {
				t.Errorf("Expected %d API calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

func TestSheetsAdaptor_SaveWithRetry(t *testing.T) {
	var clearCalls int32
	failCount := int32(2)
	fake := &fakeSheets{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v4/spreadsheets/test-id/values/TestSheet!A:ZZ:clear" {
			if atomic.AddInt32(&clearCalls, 1) <= failCount {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error": {"code": 503, "message": "Service Unavailable"}}`))
				return
			}
		}
		fake.ServeHTTP(w, r)
	}))
	defer server.Close()

	ctx := context.Background()
	adaptor, err := NewSheetsAdaptor(ctx, Config{
		SpreadsheetID: "test-id",
		SheetName:     "TestSheet",
	}, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("Failed to create adaptor: %v", err)
	}

	store := sheetcrud.NewStore(adaptor, testStoreConfig())
	records, schema := storetest.SampleRecords()
	if err := store.Save(ctx, records, schema); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got := atomic.LoadInt32(&clearCalls); got != failCount+1 {
		t.Errorf("Expected %d clear calls, got %d", failCount+1, got)
	}

	loaded, _, err := adaptor.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := storetest.EqualRecords(loaded, records); err != nil {
		t.Error(err)
	}
}
