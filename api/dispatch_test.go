package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchTable() *Table {
	return &Table{
		Columns: []Column{
			{Key: ColProductID},
			{Key: ColProductSKU},
			{Key: ColCatalogID},
			{Key: "C1"},
			{Key: "C2"},
		},
		Rows: []map[string]string{
			{ColProductID: "p1", ColProductSKU: "SKU1", ColCatalogID: "cat", "C1": "red"},
			{ColProductID: "p2", ColProductSKU: "SKU2", ColCatalogID: "cat", "C1": "blue", "C2": "xl"},
			{ColProductID: "p3", ColProductSKU: "SKU3", ColCatalogID: "cat", "C2": "s"},
		},
	}
}

func TestDispatchRowOrderAndOutcomes(t *testing.T) {
	type call struct {
		productID string
		payload   map[string]string
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PUT", r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		// URL shape: /channelCatalogs/{catalogId}/products/{productId}/overrides
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.Len(t, parts, 5)
		require.Equal(t, "channelCatalogs", parts[0])
		require.Equal(t, "cat", parts[1])
		require.Equal(t, "overrides", parts[4])
		productID := parts[3]
		calls = append(calls, call{productID: productID, payload: payload})

		if productID == "p2" {
			http.Error(w, "conflict", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))

	var progress [][2]int
	results := client.Dispatch(context.Background(), dispatchTable(), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})

	require.Len(t, results, 3, "exactly one result per input row")
	assert.Equal(t, RowSuccess, results[0].Status)
	assert.Equal(t, RowFailure, results[1].Status)
	assert.Equal(t, "status 409", results[1].Detail)
	assert.Equal(t, RowSuccess, results[2].Status)
	for i, r := range results {
		assert.Equal(t, i, r.RowIndex)
	}
	assert.Equal(t, "p2", results[1].ProductID)
	assert.Equal(t, "SKU2", results[1].ProductSKU)

	// Row order is preserved on the wire.
	require.Len(t, calls, 3)
	assert.Equal(t, "p1", calls[0].productID)
	assert.Equal(t, "p2", calls[1].productID)
	assert.Equal(t, "p3", calls[2].productID)

	// Identity columns and blank cells never reach the payload.
	assert.Equal(t, map[string]string{"C1": "red"}, calls[0].payload)
	assert.Equal(t, map[string]string{"C1": "blue", "C2": "xl"}, calls[1].payload)
	assert.Equal(t, map[string]string{"C2": "s"}, calls[2].payload)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestDispatchTransportFaultIsRowError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	srv.Close() // refuse all connections

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))

	results := client.Dispatch(context.Background(), dispatchTable(), nil)

	require.Len(t, results, 3, "a faulting row never aborts the batch")
	for _, r := range results {
		assert.Equal(t, RowError, r.Status)
		assert.NotEmpty(t, r.Detail)
	}
}

func TestDispatchMissingTokenIsRowError(t *testing.T) {
	client := NewClient(Credentials{}, nil)

	results := client.Dispatch(context.Background(), dispatchTable(), nil)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, RowError, r.Status)
	}
}

func TestSummarize(t *testing.T) {
	results := []RowResult{
		{Status: RowSuccess},
		{Status: RowFailure},
		{Status: RowSuccess},
		{Status: RowError},
	}

	s := Summarize(results)

	assert.Equal(t, DispatchSummary{Total: 4, Successes: 2, Failures: 1, Errors: 1}, s)
	assert.Equal(t, DispatchSummary{}, Summarize(nil))
}
