// api/schema.go
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ColumnMapping links a channel column's machine identifier to its
// human-readable name. Identifiers are unique within a catalog; names are
// not. Response order carries no meaning and consumers must not rely on it.
type ColumnMapping struct {
	ID   string `json:"channelColumnId"`
	Name string `json:"channelColumnName"`
}

type catalogResponse struct {
	ColumnMappings []ColumnMapping `json:"columnMappings"`
}

// schemaCache memoizes the per-catalog attribute schema for a bounded
// window. Entries are replaced wholesale on refresh; concurrent cold
// fetches for one catalog collapse into a single remote call.
type schemaCache struct {
	mu      sync.RWMutex
	entries map[string]schemaEntry
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

type schemaEntry struct {
	mappings  []ColumnMapping
	fetchedAt time.Time
}

func newSchemaCache(ttl time.Duration) *schemaCache {
	return &schemaCache{
		entries: make(map[string]schemaEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (sc *schemaCache) get(catalogID string) ([]ColumnMapping, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	entry, ok := sc.entries[catalogID]
	if !ok || sc.now().Sub(entry.fetchedAt) >= sc.ttl {
		return nil, false
	}
	return entry.mappings, true
}

func (sc *schemaCache) put(catalogID string, mappings []ColumnMapping) {
	sc.mu.Lock()
	sc.entries[catalogID] = schemaEntry{mappings: mappings, fetchedAt: sc.now()}
	sc.mu.Unlock()
}

// ResolveSchema returns the catalog's column mappings, serving a cached
// copy when one is fresh. The cache is an optimization only: a cold or
// expired entry always triggers exactly one fresh fetch.
func (c *Client) ResolveSchema(ctx context.Context, catalogID string) ([]ColumnMapping, error) {
	if mappings, ok := c.schemas.get(catalogID); ok {
		return mappings, nil
	}

	v, err, _ := c.schemas.group.Do(catalogID, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have filled
		// the entry between the miss and the flight start.
		if mappings, ok := c.schemas.get(catalogID); ok {
			return mappings, nil
		}

		var resp catalogResponse
		url := fmt.Sprintf("%s/channelCatalogs/%s", c.baseURL, catalogID)
		if err := c.doJSON(ctx, "resolve schema", catalogID, "GET", url, nil, &resp); err != nil {
			return nil, err
		}

		c.schemas.put(catalogID, resp.ColumnMappings)
		c.logger.Info("resolved catalog schema",
			zap.String("catalogId", catalogID),
			zap.Int("columns", len(resp.ColumnMappings)),
		)
		return resp.ColumnMappings, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ColumnMapping), nil
}
