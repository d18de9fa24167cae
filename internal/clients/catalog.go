package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the part of a catalog listing the cart cares about.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
	Sizes []string        `json:"sizes"`
}

type CatalogClient struct{ c *Client }

func NewCatalogClient(c *Client) *CatalogClient { return &CatalogClient{c: c} }

func (cc *CatalogClient) GetProduct(ctx context.Context, id string) (Product, error) {
	resp, err := cc.c.Do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), "", nil, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return Product{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return Product{}, newAPIError(cc.c.Name, resp)
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}
