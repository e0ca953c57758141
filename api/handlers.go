// api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Response is our API response structure
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server wires the override engine behind HTTP endpoints.
type Server struct {
	logger  *zap.Logger
	journal *Journal

	// newClient is swappable so tests can point handlers at a fake
	// BeezUp server.
	newClient func(creds Credentials) *Client
}

// NewServer builds the handler set. journal may be nil when no database is
// configured.
func NewServer(logger *zap.Logger, journal *Journal) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger, journal: journal}
	s.newClient = func(creds Credentials) *Client {
		return NewClient(creds, logger)
	}
	return s
}

// credentials reads the BeezUp token from the request header, falling back
// to the environment. The token is never stored server-side.
func (s *Server) credentials(r *http.Request) Credentials {
	token := r.Header.Get("Ocp-Apim-Subscription-Key")
	if token == "" {
		token = os.Getenv("BEEZUP_API_KEY")
	}
	return Credentials{Token: token}
}

func respondJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

func respondWithError(w http.ResponseWriter, code int, err error) {
	respondJSON(w, code, Response{Success: false, Error: err.Error()})
}

// errorStatus maps engine errors onto HTTP statuses.
func errorStatus(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// AttributesHandler returns the resolved attribute schema for a catalog.
//
// GET /api/attributes?catalogId=...
func (s *Server) AttributesHandler(w http.ResponseWriter, r *http.Request) {
	catalogID := r.URL.Query().Get("catalogId")
	if catalogID == "" {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("catalogId query parameter is required"))
		return
	}

	client := s.newClient(s.credentials(r))
	schema, err := client.ResolveSchema(r.Context(), catalogID)
	if err != nil {
		s.logger.Error("schema resolution failed", zap.String("catalogId", catalogID), zap.Error(err))
		respondWithError(w, errorStatus(err), err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: schema})
}

type exportRequest struct {
	CatalogID  string   `json:"catalogId"`
	SKUs       []string `json:"skus"`
	Attributes []string `json:"attributes"`
}

// TemplateExportHandler locates the requested SKUs and streams back the
// editable XLSX template.
//
// POST /api/template-export
func (s *Server) TemplateExportHandler(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
		return
	}
	if req.CatalogID == "" {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("catalogId is required"))
		return
	}

	skus := normalizeSKUs(req.SKUs)
	if len(skus) == 0 {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("at least one SKU is required"))
		return
	}
	if len(req.Attributes) == 0 {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("at least one attribute is required"))
		return
	}

	client := s.newClient(s.credentials(r))

	schema, err := client.ResolveSchema(r.Context(), req.CatalogID)
	if err != nil {
		s.logger.Error("schema resolution failed", zap.String("catalogId", req.CatalogID), zap.Error(err))
		respondWithError(w, errorStatus(err), err)
		return
	}

	records, err := client.LocateProducts(r.Context(), req.CatalogID, skus)
	if err != nil {
		s.logger.Error("product location failed", zap.String("catalogId", req.CatalogID), zap.Error(err))
		respondWithError(w, errorStatus(err), err)
		return
	}

	table := ToDisplay(BuildTable(records), schema, req.Attributes)
	buf, err := EncodeTemplate(table)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="template.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// TemplateDispatchHandler accepts the completed template as a multipart
// upload, dispatches one override mutation per row, journals the run and
// returns the per-row outcomes.
//
// POST /api/template-dispatch?catalogId=...
func (s *Server) TemplateDispatchHandler(w http.ResponseWriter, r *http.Request) {
	catalogID := r.URL.Query().Get("catalogId")

	file, _, err := r.FormFile("template")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("template file is required: %v", err))
		return
	}
	defer file.Close()

	table, err := ParseTemplate(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err)
		return
	}
	if len(table.Rows) == 0 {
		respondWithError(w, http.StatusBadRequest, fmt.Errorf("template contains no data rows"))
		return
	}
	if catalogID == "" {
		catalogID = table.Cell(0, ColCatalogID)
	}

	client := s.newClient(s.credentials(r))
	if !client.creds.Valid() {
		err := &AuthError{Op: "dispatch overrides", CatalogID: catalogID}
		respondWithError(w, http.StatusUnauthorized, err)
		return
	}

	startedAt := time.Now()
	results := client.Dispatch(r.Context(), table, func(done, total int) {
		s.logger.Info("dispatch progress",
			zap.String("catalogId", catalogID),
			zap.Int("done", done),
			zap.Int("total", total),
		)
	})
	finishedAt := time.Now()

	summary := Summarize(results)
	runID := s.journal.RecordRun(r.Context(), catalogID, startedAt, finishedAt, results)
	NotifyDispatchResult(s.logger, catalogID, summary, finishedAt.Sub(startedAt))

	respondJSON(w, http.StatusOK, Response{
		Success: summary.Failures == 0 && summary.Errors == 0,
		Message: fmt.Sprintf("dispatched %d rows for catalog %s", summary.Total, catalogID),
		Data: map[string]interface{}{
			"runId":   runID,
			"summary": summary,
			"rows":    results,
		},
	})
}

// RunHistoryHandler lists recent journaled runs, newest first.
//
// GET /api/run-history?limit=20&runId=...
func (s *Server) RunHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil || !s.journal.enabled() {
		respondJSON(w, http.StatusOK, Response{Success: true, Message: "run journaling is not configured"})
		return
	}

	if rawID := r.URL.Query().Get("runId"); rawID != "" {
		runID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("invalid runId: %v", err))
			return
		}
		rows, err := s.journal.RunRows(r.Context(), runID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err)
			return
		}
		respondJSON(w, http.StatusOK, Response{Success: true, Data: rows})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.journal.RecentRuns(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: runs})
}

// normalizeSKUs strips blanks and duplicates from the operator's pasted SKU
// list before it crosses the locator boundary.
func normalizeSKUs(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, sku := range raw {
		sku = strings.TrimSpace(sku)
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		out = append(out, sku)
	}
	return out
}
