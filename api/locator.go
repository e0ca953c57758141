// api/locator.go
package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// locatePageSize is the fixed page size for product location queries.
const locatePageSize = 1000

// ProductRecord is one catalog product matched by the SKU filter, with any
// override values it already carries upstream.
type ProductRecord struct {
	ProductID  string
	ProductSKU string
	CatalogID  string
	Overrides  map[string]string
}

type productQuery struct {
	PageNumber int            `json:"pageNumber"`
	PageSize   int            `json:"pageSize"`
	Criteria   queryCriteria  `json:"criteria"`
	Filters    productFilters `json:"productFilters"`
}

type queryCriteria struct {
	Logic         string `json:"logic"`
	Exist         bool   `json:"exist"`
	Uncategorized bool   `json:"uncategorized"`
	Excluded      bool   `json:"excluded"`
	Disabled      bool   `json:"disabled"`
}

type productFilters struct {
	CatalogSKUs []string `json:"catalogSkus"`
}

type productPage struct {
	PaginationResult struct {
		PageCount int `json:"pageCount"`
	} `json:"paginationResult"`
	ProductInfos []struct {
		ProductID  string `json:"productId"`
		ProductSKU string `json:"productSku"`
		Overrides  map[string]struct {
			Override string `json:"override"`
		} `json:"overrides"`
	} `json:"productInfos"`
}

// ProductPager walks the paged product listing one page at a time. It is
// finite and forward-only; once a page is consumed it cannot be replayed.
type ProductPager struct {
	client    *Client
	catalogID string
	skus      []string
	page      int
	pageCount int
	done      bool
}

// ProductPages starts a paged location query for the given SKU allow-list.
// The caller must have de-duplicated and blank-stripped the list already.
func (c *Client) ProductPages(catalogID string, skus []string) *ProductPager {
	return &ProductPager{
		client:    c,
		catalogID: catalogID,
		skus:      skus,
		page:      1,
	}
}

// Next fetches the next page of matching products. It returns (nil, nil)
// once the listing is exhausted. A missing or non-increasing pageCount is a
// terminal condition, never an infinite loop.
func (p *ProductPager) Next(ctx context.Context) ([]ProductRecord, error) {
	if p.done {
		return nil, nil
	}

	query := productQuery{
		PageNumber: p.page,
		PageSize:   locatePageSize,
		Criteria: queryCriteria{
			Logic:         "cumulative",
			Exist:         true,
			Uncategorized: false,
			Excluded:      false,
			Disabled:      false,
		},
		Filters: productFilters{CatalogSKUs: p.skus},
	}

	var resp productPage
	url := fmt.Sprintf("%s/channelCatalogs/%s/products", p.client.baseURL, p.catalogID)
	if err := p.client.doJSON(ctx, "locate products", p.catalogID, "POST", url, query, &resp); err != nil {
		p.done = true
		return nil, err
	}

	records := make([]ProductRecord, 0, len(resp.ProductInfos))
	for _, info := range resp.ProductInfos {
		rec := ProductRecord{
			ProductID:  info.ProductID,
			ProductSKU: info.ProductSKU,
			CatalogID:  p.catalogID,
			Overrides:  make(map[string]string, len(info.Overrides)),
		}
		for columnID, edition := range info.Overrides {
			rec.Overrides[columnID] = edition.Override
		}
		records = append(records, rec)
	}

	p.pageCount = resp.PaginationResult.PageCount
	if p.page >= p.pageCount {
		p.done = true
	}
	p.page++

	return records, nil
}

// LocateProducts accumulates every page of products matching the SKU
// allow-list. Any page failure fails the whole locate; records fetched
// before the failure are discarded rather than returned as a silent
// partial result. SKUs absent from the catalog are simply not in the
// output.
func (c *Client) LocateProducts(ctx context.Context, catalogID string, skus []string) ([]ProductRecord, error) {
	pager := c.ProductPages(catalogID, skus)

	var all []ProductRecord
	pages := 0
	for {
		records, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if records == nil && pager.done {
			break
		}
		pages++
		all = append(all, records...)
		if pager.done {
			break
		}
	}

	c.logger.Info("located products",
		zap.String("catalogId", catalogID),
		zap.Int("requestedSkus", len(skus)),
		zap.Int("pages", pages),
		zap.Int("products", len(all)),
	)
	return all, nil
}
