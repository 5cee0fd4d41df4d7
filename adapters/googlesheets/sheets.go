package googlesheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sheetcrud "github.com/ideamans/go-sheetcrud"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsAdaptor implements the Adapter interface for Google Sheets.
// The first row is the header; the id column is written first.
type SheetsAdaptor struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsAdaptor creates a new Google Sheets adaptor with provided options
func NewSheetsAdaptor(ctx context.Context, config Config, opts ...option.ClientOption) (*SheetsAdaptor, error) {
	if config.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if config.SheetName == "" {
		config.SheetName = "Sheet1"
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsAdaptor{
		service:       service,
		spreadsheetID: config.SpreadsheetID,
		sheetName:     config.SheetName,
	}, nil
}

func (a *SheetsAdaptor) fullRange() string {
	return fmt.Sprintf("%s!A:ZZ", a.sheetName)
}

// Load retrieves all records and schema from the spreadsheet
func (a *SheetsAdaptor) Load(ctx context.Context) ([]*sheetcrud.Record, []string, error) {
	resp, err := a.service.Spreadsheets.Values.Get(a.spreadsheetID, a.fullRange()).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sheet data: %w", err)
	}

	if len(resp.Values) == 0 {
		return []*sheetcrud.Record{}, []string{}, nil
	}

	// ヘッダー行: id列の位置を探し、それ以外をスキーマとする
	header := make([]string, len(resp.Values[0]))
	idCol := -1
	schema := make([]string, 0, len(header))
	for i, cell := range resp.Values[0] {
		col := strings.TrimSpace(cellText(cell))
		header[i] = col
		switch {
		case col == "":
		case col == sheetcrud.IDColumn && idCol < 0:
			idCol = i
		default:
			schema = append(schema, col)
		}
	}

	records := make([]*sheetcrud.Record, 0, len(resp.Values)-1)
	for _, row := range resp.Values[1:] {
		if isBlankRow(row) {
			continue
		}

		record := &sheetcrud.Record{Values: make(map[string]interface{})}
		for j := 0; j < len(row) && j < len(header); j++ {
			colName := header[j]
			if colName == "" || row[j] == nil {
				continue
			}
			if j == idCol {
				record.ID = strings.TrimSpace(cellText(row[j]))
				continue
			}
			if colName == sheetcrud.IDColumn {
				continue
			}
			record.Values[colName] = cellText(row[j])
		}
		records = append(records, record)
	}

	return records, schema, nil
}

// Save replaces all data in the spreadsheet with the provided records,
// in the order given.
func (a *SheetsAdaptor) Save(ctx context.Context, records []*sheetcrud.Record, schema []string) error {
	values := make([][]interface{}, 0, len(records)+1)

	header := make([]interface{}, 0, len(schema)+1)
	header = append(header, sheetcrud.IDColumn)
	for _, col := range schema {
		if col != sheetcrud.IDColumn {
			header = append(header, col)
		}
	}
	values = append(values, header)

	for _, record := range records {
		row := make([]interface{}, len(header))
		row[0] = record.ID
		for i, col := range header[1:] {
			if val, ok := record.Values[col.(string)]; ok {
				row[i+1] = convertToSheetValue(val)
			} else {
				row[i+1] = ""
			}
		}
		values = append(values, row)
	}

	// Clear the entire sheet first so removed rows disappear
	_, err := a.service.Spreadsheets.Values.Clear(a.spreadsheetID, a.fullRange(), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	writeRange := fmt.Sprintf("%s!A1", a.sheetName)
	vr := &sheets.ValueRange{
		Values: values,
	}
	_, err = a.service.Spreadsheets.Values.Update(a.spreadsheetID, writeRange, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update sheet: %w", err)
	}

	return nil
}

func isBlankRow(row []interface{}) bool {
	for _, cell := range row {
		if cell != nil && strings.TrimSpace(cellText(cell)) != "" {
			return false
		}
	}
	return true
}

// cellText returns the text of a cell without type conversion, so values
// like "007" or "TRUE" survive a round trip. Typing is left to the variant.
func cellText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// convertToSheetValue converts a Go value to Google Sheets cell value
func convertToSheetValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", val)
	}
}
