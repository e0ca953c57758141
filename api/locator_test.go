package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLocatorServer serves pageCount pages of one product each and records
// every query body it receives.
func newLocatorServer(t *testing.T, pageCount int, queries *[]productQuery) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q productQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		*queries = append(*queries, q)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"paginationResult": {"pageCount": %d},
			"productInfos": [{
				"productId": "p%d",
				"productSku": "SKU%d",
				"overrides": {"C1": {"override": "v%d"}}
			}]
		}`, pageCount, q.PageNumber, q.PageNumber, q.PageNumber)
	}))
}

func TestLocateProductsSinglePage(t *testing.T) {
	var queries []productQuery
	srv := newLocatorServer(t, 1, &queries)
	defer srv.Close()

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))

	records, err := client.LocateProducts(context.Background(), "cat-1", []string{"SKU1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "p1", records[0].ProductID)
	assert.Equal(t, "SKU1", records[0].ProductSKU)
	assert.Equal(t, "cat-1", records[0].CatalogID)
	assert.Equal(t, map[string]string{"C1": "v1"}, records[0].Overrides)

	require.Len(t, queries, 1)
	assert.Equal(t, 1, queries[0].PageNumber)
	assert.Equal(t, locatePageSize, queries[0].PageSize)
	assert.Equal(t, "cumulative", queries[0].Criteria.Logic)
	assert.True(t, queries[0].Criteria.Exist)
	assert.Equal(t, []string{"SKU1"}, queries[0].Filters.CatalogSKUs)
}

func TestLocateProductsWalksAllPages(t *testing.T) {
	var queries []productQuery
	srv := newLocatorServer(t, 3, &queries)
	defer srv.Close()

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))

	records, err := client.LocateProducts(context.Background(), "cat-1", []string{"SKU1", "SKU2", "SKU3"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Len(t, queries, 3, "exactly one request per page")
	for i, q := range queries {
		assert.Equal(t, i+1, q.PageNumber)
	}
	assert.Equal(t, "p3", records[2].ProductID)
}

func TestLocateProductsMissingPageCountTerminates(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"productInfos": []}`)
	}))
	defer srv.Close()

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))

	records, err := client.LocateProducts(context.Background(), "cat-1", []string{"SKU1"})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, calls, "absent pageCount ends the walk after the first page")
}

func TestLocateProductsPageFailureDiscardsPartialResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"paginationResult": {"pageCount": 2},
			"productInfos": [{"productId": "p1", "productSku": "SKU1"}]
		}`)
	}))
	defer srv.Close()

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))

	records, err := client.LocateProducts(context.Background(), "cat-1", []string{"SKU1", "SKU2"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
	assert.Nil(t, records, "no silent partial result")
}

func TestProductPagerExhaustion(t *testing.T) {
	var queries []productQuery
	srv := newLocatorServer(t, 2, &queries)
	defer srv.Close()

	client := NewClient(Credentials{Token: "tok"}, nil, WithBaseURL(srv.URL))
	pager := client.ProductPages("cat-1", []string{"SKU1", "SKU2"})

	first, err := pager.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := pager.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)

	done, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, done, "exhausted pager yields (nil, nil)")

	again, err := pager.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, queries, 2, "exhausted pager never re-fetches")
}
