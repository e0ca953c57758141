// api/template.go
package api

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const templateSheet = "Template"

// EncodeTemplate renders the working table as an XLSX workbook with one
// header row of display labels and one data row per product.
func EncodeTemplate(t *Table) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(templateSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create template sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyleID, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: "#FFFFFF",
			Size:  11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#2B579A"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})

	for i, col := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell %d: %w", i, err)
		}
		label := col.DisplayLabel()
		if err := f.SetCellValue(templateSheet, cell, label); err != nil {
			return nil, fmt.Errorf("failed to write header %q: %w", label, err)
		}

		// Column wide enough for the label plus editing room.
		name, err := excelize.ColumnNumberToName(i + 1)
		if err == nil {
			width := float64(len([]rune(label)))*1.2 + 4
			if width < 12 {
				width = 12
			}
			f.SetColWidth(templateSheet, name, name, width)
		}
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		f.SetCellStyle(templateSheet, "A1", last, headerStyleID)
	}

	for r, row := range t.Rows {
		for i, col := range t.Columns {
			value, ok := row[col.Key]
			if !ok || value == "" {
				continue // null cell stays empty in the workbook
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell row %d col %d: %w", r, i, err)
			}
			if err := f.SetCellValue(templateSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to serialize template workbook: %w", err)
	}
	return buf, nil
}

// ParseTemplate decodes an operator-edited workbook back into machine form.
// Header labels are decoded via DecodeLabel; two labels collapsing onto the
// same machine key abort the parse instead of silently overwriting each
// other. Cell values pass through unchanged apart from whitespace trimming;
// blank and missing cells both normalize to "".
func ParseTemplate(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open template workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("template workbook has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read template rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("template workbook has no header row")
	}

	t := &Table{}
	byKey := map[string]string{}
	var positions []int // sheet column index for each table column
	for pos, label := range rows[0] {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		key := DecodeLabel(label)
		if prev, ok := byKey[key]; ok {
			return nil, fmt.Errorf("template headers %q and %q both decode to column id %q", prev, label, key)
		}
		byKey[key] = label
		t.Columns = append(t.Columns, Column{Key: key})
		positions = append(positions, pos)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("template workbook has an empty header row")
	}

	for _, raw := range rows[1:] {
		cells := make(map[string]string, len(t.Columns))
		empty := true
		for i, col := range t.Columns {
			var value string
			if pos := positions[i]; pos < len(raw) {
				value = strings.TrimSpace(raw[pos])
			}
			if value == "" {
				continue
			}
			cells[col.Key] = value
			empty = false
		}
		if empty {
			continue // trailing blank rows from spreadsheet editors
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}
