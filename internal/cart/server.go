package cart

import (
	"context"
	"net/http"
	"net/url"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

type cartResponse struct {
	Cart *model.Cart `json:"cart"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ServerBackedCart is the signed-in cart held by the storefront API.
// Server responses are adopted verbatim.
type ServerBackedCart struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewServerBackedCart creates the server cart backend.
func NewServerBackedCart(fetcher Fetcher, logger zerolog.Logger) *ServerBackedCart {
	return &ServerBackedCart{
		fetcher: fetcher,
		logger:  logger.With().Str("backend", "server").Logger(),
	}
}

func (b *ServerBackedCart) View(ctx context.Context) (*model.Cart, error) {
	var resp cartResponse
	if err := b.fetcher.AuthedFetch(ctx, http.MethodGet, "/api/cart", nil, &resp); err != nil {
		return nil, err
	}
	cart := resp.Cart
	if cart == nil {
		cart = &model.Cart{}
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return cart, nil
}

func (b *ServerBackedCart) Add(ctx context.Context, productID string, quantity int) error {
	return b.fetcher.AuthedFetch(ctx, http.MethodPost, "/api/cart/items",
		addItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (b *ServerBackedCart) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	return b.fetcher.AuthedFetch(ctx, http.MethodPatch, itemPath(itemID),
		setQuantityRequest{Quantity: quantity}, nil)
}

func (b *ServerBackedCart) Remove(ctx context.Context, itemID string) error {
	return b.fetcher.AuthedFetch(ctx, http.MethodDelete, itemPath(itemID), nil, nil)
}

func (b *ServerBackedCart) Clear(ctx context.Context) error {
	return b.fetcher.AuthedFetch(ctx, http.MethodDelete, "/api/cart/clear", nil, nil)
}

func itemPath(itemID string) string {
	return "/api/cart/items/" + url.PathEscape(itemID)
}
