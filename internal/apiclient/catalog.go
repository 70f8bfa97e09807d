package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"storefront/internal/model"
)

// Catalog reads products from the public catalogue endpoints.
type Catalog struct {
	client *Client
}

// NewCatalog creates a catalogue reader over client.
func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client}
}

type productsByIDsRequest struct {
	IDs []string `json:"ids"`
}

type productsByIDsResponse struct {
	Items []model.Product `json:"items"`
}

// ProductsByIDs resolves product ids in one batch. Unknown ids are simply
// absent from the result; ordering is not guaranteed.
func (c *Catalog) ProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var resp productsByIDsResponse
	err := c.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/products/by-ids",
		Body:   productsByIDsRequest{IDs: ids},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to look up products: %w", err)
	}
	return resp.Items, nil
}
