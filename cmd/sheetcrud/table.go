package main

import (
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func renderTable(headers []string, rows [][]string, rightAligned map[int]bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if rightAligned[i] {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    40,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// recordTable renders records with the id first and the variant columns after
func recordTable(variant *sheetcrud.Variant, records []*sheetcrud.Record) string {
	headers := append([]string{sheetcrud.IDColumn}, variant.Columns()...)
	right := map[int]bool{}
	for i, col := range headers {
		if f, ok := variant.Field(col); ok && f.Kind == sheetcrud.KindInt {
			right[i] = true
		}
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(headers))
		for i, col := range headers {
			row[i] = r.GetAsString(col, "")
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, right)
}
