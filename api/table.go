// api/table.go
package api

import (
	"strings"
)

// Reserved identity columns. They are never renamed, never dropped and
// never part of a dispatch payload.
const (
	ColProductID  = "Product Id"
	ColProductSKU = "Product Sku"
	ColCatalogID  = "Catalog Id"
)

// Column is one working-table column. Key is the machine identifier the
// remote API understands; Name is the human attribute name when the schema
// knows it, empty otherwise. Keeping both on the column means the core
// never recovers the machine key by parsing a display string; only the
// template boundary flattens the pair into a single label.
type Column struct {
	Key  string
	Name string
}

// Identity reports whether the column is one of the reserved identity
// columns.
func (c Column) Identity() bool {
	return c.Key == ColProductID || c.Key == ColProductSKU || c.Key == ColCatalogID
}

// DisplayLabel flattens the column into the header string handed to the
// operator: "<name> | <id>" when the name is known, the bare key otherwise.
func (c Column) DisplayLabel() string {
	if c.Name == "" {
		return c.Key
	}
	return c.Name + " | " + c.Key
}

// DecodeLabel recovers the machine key from a header label: the substring
// after the last "| " separator, or the label itself when no separator is
// present (identity columns, unknown attributes).
func DecodeLabel(label string) string {
	if idx := strings.LastIndex(label, "| "); idx >= 0 {
		return strings.TrimSpace(label[idx+2:])
	}
	return label
}

// Table is the working set exchanged with the operator: ordered columns and
// one row per product. Row cells are keyed by machine column key; a missing
// or empty cell both mean "no value".
type Table struct {
	Columns []Column
	Rows    []map[string]string
}

// HasColumn reports whether a column with the given machine key exists.
func (t *Table) HasColumn(key string) bool {
	for _, col := range t.Columns {
		if col.Key == key {
			return true
		}
	}
	return false
}

// Cell returns a row's value for a machine key, "" when absent.
func (t *Table) Cell(row int, key string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][key]
}

// clone returns a deep copy so the codec operations never mutate their
// input from the caller's perspective.
func (t *Table) clone() *Table {
	out := &Table{
		Columns: make([]Column, len(t.Columns)),
		Rows:    make([]map[string]string, len(t.Rows)),
	}
	copy(out.Columns, t.Columns)
	for i, row := range t.Rows {
		cells := make(map[string]string, len(row))
		for k, v := range row {
			cells[k] = v
		}
		out.Rows[i] = cells
	}
	return out
}

// BuildTable assembles the initial working table from located products:
// identity columns first, then one column per override key present on any
// record, in first-seen order. Rows of products lacking a given attribute
// simply have no cell for it.
func BuildTable(records []ProductRecord) *Table {
	t := &Table{
		Columns: []Column{{Key: ColProductID}, {Key: ColProductSKU}, {Key: ColCatalogID}},
	}

	seen := map[string]bool{}
	for _, rec := range records {
		row := map[string]string{
			ColProductID:  rec.ProductID,
			ColProductSKU: rec.ProductSKU,
			ColCatalogID:  rec.CatalogID,
		}
		for columnID, value := range rec.Overrides {
			if !seen[columnID] {
				seen[columnID] = true
				t.Columns = append(t.Columns, Column{Key: columnID})
			}
			row[columnID] = value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ToDisplay prepares a table for operator editing. Every selected attribute
// name missing from the table gains a null-valued column, so the template
// column set is stable regardless of which products already carry a value.
// Then every attribute column whose key the schema knows gets its name
// attached; identity columns and unknown keys stay bare. Degrades to a
// no-op rename on an empty schema. The input table is left untouched.
func ToDisplay(t *Table, schema []ColumnMapping, selectedNames []string) *Table {
	out := t.clone()

	names := make(map[string]string, len(schema))
	for _, m := range schema {
		// First mapping wins on duplicate ids, mirroring the upstream
		// de-duplication of the schema feed.
		if _, ok := names[m.ID]; !ok {
			names[m.ID] = m.Name
		}
	}

	for _, selected := range selectedNames {
		for _, m := range schema {
			if m.Name != selected || out.HasColumn(m.ID) {
				continue
			}
			out.Columns = append(out.Columns, Column{Key: m.ID})
		}
	}

	for i, col := range out.Columns {
		if col.Identity() {
			continue
		}
		if name, ok := names[col.Key]; ok {
			out.Columns[i].Name = name
		}
	}
	return out
}

// ToMachine strips display names from a table, leaving machine keys only.
// With paired columns this is a pure projection; no string parsing happens
// here. The input table is left untouched.
func ToMachine(t *Table) *Table {
	out := t.clone()
	for i := range out.Columns {
		out.Columns[i].Name = ""
	}
	return out
}
