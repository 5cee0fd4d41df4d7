package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sheetcrud "github.com/ideamans/go-sheetcrud"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Adapter implements the sheetcrud.Adapter interface on a SQLite database.
// Column order lives in "<table>_columns"; each record is one row holding its
// id, its position and its values as a JSON object.
type Adapter struct {
	db      *sql.DB
	table   string
	columns string
}

// Open initializes or connects to the database and creates the tables
func Open(config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// 単一接続なら :memory: も同じDBを見続ける
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	a := &Adapter{
		db:      db,
		table:   config.Table,
		columns: config.Table + "_columns",
	}
	if err := a.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the underlying database connection
func (a *Adapter) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Adapter) initSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`, a.columns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			data TEXT NOT NULL
		)`, a.table),
	}
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Load retrieves all records in stored order together with the column order
func (a *Adapter) Load(ctx context.Context) ([]*sheetcrud.Record, []string, error) {
	var (
		records []*sheetcrud.Record
		schema  []string
	)
	err := retryOnBusy(ctx, func() error {
		var err error
		schema, err = a.loadColumns(ctx)
		if err != nil {
			return err
		}
		records, err = a.loadRecords(ctx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return records, schema, nil
}

func (a *Adapter) loadColumns(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %q ORDER BY position`, a.columns))
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	schema := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		schema = append(schema, name)
	}
	return schema, rows.Err()
}

func (a *Adapter) loadRecords(ctx context.Context) ([]*sheetcrud.Record, error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, data FROM %q ORDER BY position`, a.table))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []*sheetcrud.Record{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		values, err := decodeValues(data)
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		records = append(records, &sheetcrud.Record{ID: id, Values: values})
	}
	return records, rows.Err()
}

// Save replaces both tables in one transaction
func (a *Adapter) Save(ctx context.Context, records []*sheetcrud.Record, schema []string) error {
	return retryOnBusy(ctx, func() error {
		return a.save(ctx, records, schema)
	})
}

func (a *Adapter) save(ctx context.Context, records []*sheetcrud.Record, schema []string) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{a.columns, a.table} {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	position := 0
	for _, col := range schema {
		if col == sheetcrud.IDColumn {
			continue
		}
		if _, err = tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %q (position, name) VALUES (?, ?)`, a.columns),
			position, col); err != nil {
			return fmt.Errorf("insert column %s: %w", col, err)
		}
		position++
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (position, id, data) VALUES (?, ?, ?)`, a.table))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		data, encErr := encodeValues(record.Values)
		if encErr != nil {
			err = fmt.Errorf("encode record %s: %w", record.ID, encErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, i, record.ID, data); err != nil {
			return fmt.Errorf("insert record %s: %w", record.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func encodeValues(values map[string]interface{}) (string, error) {
	clean := make(map[string]interface{}, len(values))
	for k, v := range values {
		if k == sheetcrud.IDColumn || v == nil {
			continue
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeValues keeps integers as int64 like the sheet adapters do
func decodeValues(data string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	raw := map[string]interface{}{}
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			raw[k] = i
		} else if f, err := n.Float64(); err == nil {
			raw[k] = f
		} else {
			raw[k] = n.String()
		}
	}
	return raw, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
