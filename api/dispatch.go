// api/dispatch.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// RowStatus classifies one dispatched row.
type RowStatus string

const (
	// RowSuccess means BeezUp acknowledged the override write with 204.
	RowSuccess RowStatus = "success"
	// RowFailure means the call completed with any other status.
	RowFailure RowStatus = "failure"
	// RowError means the call itself could not complete.
	RowError RowStatus = "error"
)

// RowResult is the outcome for one working-table row. Exactly one is
// produced per input row, in input order.
type RowResult struct {
	RowIndex   int       `json:"rowIndex"`
	ProductID  string    `json:"productId"`
	ProductSKU string    `json:"productSku"`
	Status     RowStatus `json:"status"`
	Detail     string    `json:"detail,omitempty"`
}

// ProgressFunc receives (rows completed so far, total rows) after each row,
// letting a caller render live progress.
type ProgressFunc func(done, total int)

// buildPayload collects the dispatchable cells of one row: attribute
// columns only, blank values skipped.
func buildPayload(t *Table, row int) map[string]string {
	payload := map[string]string{}
	for _, col := range t.Columns {
		if col.Identity() {
			continue
		}
		if value := t.Cell(row, col.Key); value != "" {
			payload[col.Key] = value
		}
	}
	return payload
}

// setOverrides issues one override mutation for a product. An empty-body
// 204 reply is the only success signal; any other status is a logical
// failure and a transport fault is an error.
func (c *Client) setOverrides(ctx context.Context, catalogID, productID string, payload map[string]string) (RowStatus, string) {
	if !c.creds.Valid() {
		return RowError, (&AuthError{Op: "set overrides", CatalogID: catalogID}).Error()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return RowError, fmt.Sprintf("marshaling payload: %v", err)
	}

	url := fmt.Sprintf("%s/channelCatalogs/%s/products/%s/overrides", c.baseURL, catalogID, productID)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(raw))
	if err != nil {
		return RowError, fmt.Sprintf("creating request: %v", err)
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RowError, err.Error()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return RowSuccess, ""
	}
	return RowFailure, fmt.Sprintf("status %d", resp.StatusCode)
}

// Dispatch walks the finalized table strictly in row order and issues one
// override mutation per product. A row's Failure or Error never aborts the
// batch; the batch is a sequence of independent mutations, not a
// transaction. No automatic retry happens — re-running the batch is the
// caller's call.
func (c *Client) Dispatch(ctx context.Context, t *Table, progress ProgressFunc) []RowResult {
	total := len(t.Rows)
	results := make([]RowResult, 0, total)

	for i := range t.Rows {
		result := RowResult{
			RowIndex:   i,
			ProductID:  t.Cell(i, ColProductID),
			ProductSKU: t.Cell(i, ColProductSKU),
		}
		catalogID := t.Cell(i, ColCatalogID)

		payload := buildPayload(t, i)
		result.Status, result.Detail = c.setOverrides(ctx, catalogID, result.ProductID, payload)

		if result.Status != RowSuccess {
			c.logger.Warn("override dispatch row did not succeed",
				zap.Int("row", i),
				zap.String("productId", result.ProductID),
				zap.String("productSku", result.ProductSKU),
				zap.String("status", string(result.Status)),
				zap.String("detail", result.Detail),
			)
		}

		results = append(results, result)
		if progress != nil {
			progress(i+1, total)
		}
	}
	return results
}

// DispatchSummary aggregates a result sequence for reporting.
type DispatchSummary struct {
	Total     int `json:"total"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
	Errors    int `json:"errors"`
}

// Summarize counts outcomes per status.
func Summarize(results []RowResult) DispatchSummary {
	s := DispatchSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case RowSuccess:
			s.Successes++
		case RowFailure:
			s.Failures++
		default:
			s.Errors++
		}
	}
	return s
}
