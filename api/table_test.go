package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Color | C1", "C1"},
		{"Product Id", "Product Id"},
		{"Weird | Name | C42", "C42"},
		{"Size |   C7", "C7"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeLabel(tt.label))
		})
	}
}

func TestDisplayLabelRoundTrip(t *testing.T) {
	col := Column{Key: "C1", Name: "Color"}
	assert.Equal(t, "Color | C1", col.DisplayLabel())
	assert.Equal(t, "C1", DecodeLabel(col.DisplayLabel()))

	bare := Column{Key: ColProductID}
	assert.Equal(t, ColProductID, bare.DisplayLabel())
	assert.Equal(t, ColProductID, DecodeLabel(bare.DisplayLabel()))
}

func TestBuildTable(t *testing.T) {
	records := []ProductRecord{
		{ProductID: "p1", ProductSKU: "SKU1", CatalogID: "cat", Overrides: map[string]string{"C1": "red"}},
		{ProductID: "p2", ProductSKU: "SKU2", CatalogID: "cat", Overrides: map[string]string{"C2": "xl"}},
	}

	table := BuildTable(records)

	require.Len(t, table.Rows, 2)
	require.Len(t, table.Columns, 5) // 3 identity + C1 + C2
	assert.True(t, table.Columns[0].Identity())
	assert.Equal(t, "p1", table.Cell(0, ColProductID))
	assert.Equal(t, "SKU2", table.Cell(1, ColProductSKU))
	assert.Equal(t, "cat", table.Cell(0, ColCatalogID))
	assert.Equal(t, "red", table.Cell(0, "C1"))
	assert.Equal(t, "", table.Cell(0, "C2")) // absent attribute is null
	assert.Equal(t, "xl", table.Cell(1, "C2"))
}

func TestToDisplayAddsSelectedColumn(t *testing.T) {
	schema := []ColumnMapping{{ID: "C1", Name: "Color"}}
	table := BuildTable([]ProductRecord{
		{ProductID: "p1", ProductSKU: "SKU1", CatalogID: "cat"},
	})
	require.False(t, table.HasColumn("C1"))

	out := ToDisplay(table, schema, []string{"Color"})

	require.True(t, out.HasColumn("C1"))
	var added Column
	for _, col := range out.Columns {
		if col.Key == "C1" {
			added = col
		}
	}
	assert.Equal(t, "Color | C1", added.DisplayLabel())
	assert.Equal(t, "", out.Cell(0, "C1"))

	// and the label decodes back to the machine id
	assert.Equal(t, "C1", DecodeLabel(added.DisplayLabel()))
}

func TestToDisplayRenamesKnownColumnsOnly(t *testing.T) {
	schema := []ColumnMapping{{ID: "C1", Name: "Color"}}
	table := BuildTable([]ProductRecord{
		{ProductID: "p1", ProductSKU: "SKU1", CatalogID: "cat", Overrides: map[string]string{"C1": "red", "CX": "??"}},
	})

	out := ToDisplay(table, schema, nil)

	labels := map[string]string{}
	for _, col := range out.Columns {
		labels[col.Key] = col.DisplayLabel()
	}
	assert.Equal(t, "Color | C1", labels["C1"])
	assert.Equal(t, "CX", labels["CX"], "unknown ids stay bare")
	assert.Equal(t, ColProductID, labels[ColProductID], "identity columns are never renamed")
}

func TestToDisplayEmptySchemaIsNoOp(t *testing.T) {
	table := BuildTable([]ProductRecord{
		{ProductID: "p1", ProductSKU: "SKU1", CatalogID: "cat", Overrides: map[string]string{"C1": "red"}},
	})

	out := ToDisplay(table, nil, []string{"Color"})

	require.Len(t, out.Columns, len(table.Columns))
	for i, col := range out.Columns {
		assert.Equal(t, table.Columns[i].Key, col.Key)
		assert.Equal(t, "", col.Name)
	}
}

func TestToDisplayDoesNotMutateInput(t *testing.T) {
	schema := []ColumnMapping{{ID: "C1", Name: "Color"}}
	table := BuildTable([]ProductRecord{
		{ProductID: "p1", ProductSKU: "SKU1", CatalogID: "cat"},
	})
	colsBefore := len(table.Columns)

	out := ToDisplay(table, schema, []string{"Color"})
	out.Rows[0]["C1"] = "blue"

	assert.Len(t, table.Columns, colsBefore)
	assert.Equal(t, "", table.Cell(0, "C1"))
	for _, col := range table.Columns {
		assert.Equal(t, "", col.Name)
	}
}

func TestToMachineStripsNames(t *testing.T) {
	schema := []ColumnMapping{{ID: "C1", Name: "Color"}}
	table := ToDisplay(BuildTable([]ProductRecord{
		{ProductID: "p1", ProductSKU: "SKU1", CatalogID: "cat", Overrides: map[string]string{"C1": "red"}},
	}), schema, nil)

	out := ToMachine(table)

	for _, col := range out.Columns {
		assert.Equal(t, "", col.Name)
		assert.Equal(t, col.Key, col.DisplayLabel())
	}
	// values survive untouched
	assert.Equal(t, "red", out.Cell(0, "C1"))
	// and the display table still carries its names
	assert.Equal(t, "Color", table.Columns[3].Name)
}
