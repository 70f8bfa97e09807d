// Package cart reconciles the shopper's cart into one render-ready view,
// backed by the server cart when signed in and by the guest ledger
// otherwise.
package cart

import (
	"context"

	"storefront/internal/model"
)

// Backend is one source of truth for the cart.
type Backend interface {
	// View returns the current cart.
	View(ctx context.Context) (*model.Cart, error)

	// Add adds quantity units of productID.
	Add(ctx context.Context, productID string, quantity int) error

	// SetQuantity replaces the quantity of a cart line.
	SetQuantity(ctx context.Context, itemID string, quantity int) error

	// Remove deletes a cart line.
	Remove(ctx context.Context, itemID string) error

	// Clear empties the cart.
	Clear(ctx context.Context) error
}

// Fetcher performs authenticated API calls.
type Fetcher interface {
	AuthedFetch(ctx context.Context, method, path string, body, out any) error
}

// ProductLookup resolves product ids to full product records.
type ProductLookup interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// AuthState tells the reconciler which backend is active.
type AuthState interface {
	IsAuthenticated() bool
}
