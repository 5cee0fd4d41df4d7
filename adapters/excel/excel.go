package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/xuri/excelize/v2"
)

// Adapter implements the sheetcrud.Adapter interface for Excel files.
// Other processes are kept out with a lock file next to the workbook.
type Adapter struct {
	config *Config
	mu     sync.RWMutex
	lock   *flock.Flock
}

// New creates a new Excel adapter with the given configuration
func New(config *Config) (*Adapter, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create a copy of config to avoid external modifications
	configCopy := *config

	return &Adapter{
		config: &configCopy,
		lock:   flock.New(configCopy.FilePath + ".lock"),
	}, nil
}

func (a *Adapter) acquire(ctx context.Context, shared bool) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, a.config.lockTimeout())
	defer cancel()

	var locked bool
	var err error
	if shared {
		locked, err = a.lock.TryRLockContext(lockCtx, 50*time.Millisecond)
	} else {
		locked, err = a.lock.TryLockContext(lockCtx, 50*time.Millisecond)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return func() { _ = a.lock.Unlock() }, nil
}

// Load retrieves all records and schema from the Excel file
func (a *Adapter) Load(ctx context.Context) ([]*sheetcrud.Record, []string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	// Check if context is cancelled
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if _, err := os.Stat(a.config.FilePath); os.IsNotExist(err) {
		// File doesn't exist, return empty data
		return []*sheetcrud.Record{}, []string{}, nil
	}

	release, err := a.acquire(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	f, err := excelize.OpenFile(a.config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetIndex, err := f.GetSheetIndex(a.config.SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sheet index: %w", err)
	}
	if sheetIndex == -1 {
		// Sheet doesn't exist, return empty data
		return []*sheetcrud.Record{}, []string{}, nil
	}

	rows, err := f.GetRows(a.config.SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %w", err)
	}

	if len(rows) == 0 {
		return []*sheetcrud.Record{}, []string{}, nil
	}

	// 先頭行はヘッダー。id列はどこにあってもよい
	header := rows[0]
	idCol := -1
	schema := make([]string, 0, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		header[i] = col
		switch {
		case col == "":
		case col == sheetcrud.IDColumn && idCol < 0:
			idCol = i
		default:
			schema = append(schema, col)
		}
	}

	records := make([]*sheetcrud.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		record := &sheetcrud.Record{Values: make(map[string]interface{})}
		for j, value := range row {
			if j >= len(header) || header[j] == "" {
				continue
			}
			if j == idCol {
				record.ID = strings.TrimSpace(value)
				continue
			}
			if header[j] == sheetcrud.IDColumn {
				continue
			}
			// 型付けはバリアント側で行う
			record.Values[header[j]] = value
		}
		records = append(records, record)
	}

	return records, schema, nil
}

// Save replaces the sheet with the provided records. Other sheets of the
// workbook are kept. The file is written to a temporary name first and
// renamed into place.
func (a *Adapter) Save(ctx context.Context, records []*sheetcrud.Record, schema []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(a.config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	release, err := a.acquire(ctx, false)
	if err != nil {
		return err
	}
	defer release()

	f, err := a.openForWrite()
	if err != nil {
		return err
	}
	defer f.Close()

	header := make([]interface{}, 0, len(schema)+1)
	header = append(header, sheetcrud.IDColumn)
	for _, col := range schema {
		if col != sheetcrud.IDColumn {
			header = append(header, col)
		}
	}

	if err := f.SetSheetRow(a.config.SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, record := range records {
		rowNum := i + 2
		rowValues := make([]interface{}, len(header))
		rowValues[0] = record.ID
		for j, col := range header[1:] {
			if val, ok := record.Values[col.(string)]; ok && val != nil {
				rowValues[j+1] = val
			} else {
				rowValues[j+1] = ""
			}
		}

		cell := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(a.config.SheetName, cell, &rowValues); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
	}

	if err := f.SetColWidth(a.config.SheetName, "A", columnName(len(header)), 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(a.config.FilePath))
	if err := f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	if err := os.Rename(tmp, a.config.FilePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace Excel file: %w", err)
	}

	return nil
}

// openForWrite returns a workbook with an empty target sheet
func (a *Adapter) openForWrite() (*excelize.File, error) {
	sheet := a.config.SheetName

	if _, err := os.Stat(a.config.FilePath); err == nil {
		f, err := excelize.OpenFile(a.config.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}

		index, err := f.GetSheetIndex(sheet)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to get sheet index: %w", err)
		}
		switch {
		case index == -1:
			if _, err := f.NewSheet(sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet: %w", err)
			}
			return f, nil
		case f.SheetCount > 1:
			// 古い行を残さないためシートを作り直す
			if err := f.DeleteSheet(sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to delete sheet: %w", err)
			}
			if _, err := f.NewSheet(sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet: %w", err)
			}
			return f, nil
		default:
			// The workbook holds only our sheet, so a fresh file loses nothing.
			f.Close()
		}
	}

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)
	if defaultSheet != sheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
	}
	return f, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// columnName converts a column number to Excel column name (1 -> A, 26 -> Z, 27 -> AA)
func columnName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
