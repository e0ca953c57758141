// api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the production BeezUp API root.
const DefaultBaseURL = "https://api.beezup.com/v2/user"

// Credentials carries the BeezUp subscription token. It is threaded
// explicitly into every client call instead of living in ambient state.
type Credentials struct {
	Token string
}

// Valid reports whether the credentials can be sent at all.
func (c Credentials) Valid() bool {
	return c.Token != ""
}

// AuthError means the credential was missing or rejected by BeezUp.
// It is fatal for the whole operation; no retry is attempted.
type AuthError struct {
	Op        string
	CatalogID string
}

func (e *AuthError) Error() string {
	if e.CatalogID == "" {
		return fmt.Sprintf("%s: missing or invalid BeezUp token", e.Op)
	}
	return fmt.Sprintf("%s: missing or invalid BeezUp token (catalog %s)", e.Op, e.CatalogID)
}

// UpstreamError means a remote call failed or returned an unexpected shape
// during schema resolution or product location. Fatal for the operation.
type UpstreamError struct {
	Op        string
	CatalogID string
	Status    int
	Body      string
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: catalog %s: %v", e.Op, e.CatalogID, e.Err)
	}
	return fmt.Sprintf("%s: catalog %s: BeezUp returned status %d: %s", e.Op, e.CatalogID, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client talks to the BeezUp channel catalog API.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	logger     *zap.Logger
	schemas    *schemaCache
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithSchemaTTL overrides the attribute schema cache window.
func WithSchemaTTL(ttl time.Duration) ClientOption {
	return func(c *Client) { c.schemas.ttl = ttl }
}

// NewClient builds a BeezUp client with the given credentials.
func NewClient(creds Credentials, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		schemas:    newSchemaCache(time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.creds.Token)
}

// doJSON issues one request and decodes a JSON response into out (when out
// is non-nil). Non-2xx statuses are returned as *UpstreamError with the
// body captured for diagnosis; 401/403 map to *AuthError.
func (c *Client) doJSON(ctx context.Context, op, catalogID, method, url string, payload, out interface{}) error {
	if !c.creds.Valid() {
		return &AuthError{Op: op, CatalogID: catalogID}
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &UpstreamError{Op: op, CatalogID: catalogID, Err: fmt.Errorf("marshaling request body: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &UpstreamError{Op: op, CatalogID: catalogID, Err: fmt.Errorf("creating request: %w", err)}
	}
	c.headers(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, CatalogID: catalogID, Err: fmt.Errorf("calling BeezUp API: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Op: op, CatalogID: catalogID, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Op: op, CatalogID: catalogID}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Op: op, CatalogID: catalogID, Status: resp.StatusCode, Body: truncateBody(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &UpstreamError{Op: op, CatalogID: catalogID, Err: fmt.Errorf("parsing JSON response: %w (body: %s)", err, truncateBody(raw))}
		}
	}
	return nil
}

func truncateBody(raw []byte) string {
	const max = 512
	if len(raw) > max {
		return string(raw[:max]) + "…"
	}
	return string(raw)
}
