package cart

import (
	"context"

	"storefront/internal/guestcart"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// LocalLedgerCart is the anonymous cart: ledger entries joined with a
// batch product lookup. Item ids are product ids.
type LocalLedgerCart struct {
	ledger   *guestcart.Ledger
	products ProductLookup
	logger   zerolog.Logger
}

// NewLocalLedgerCart creates the guest cart backend.
func NewLocalLedgerCart(ledger *guestcart.Ledger, products ProductLookup, logger zerolog.Logger) *LocalLedgerCart {
	return &LocalLedgerCart{
		ledger:   ledger,
		products: products,
		logger:   logger.With().Str("backend", "guest").Logger(),
	}
}

// View joins the ledger with the catalogue. Entries whose product no
// longer resolves are left out of the view but kept in the ledger.
func (b *LocalLedgerCart) View(ctx context.Context) (*model.Cart, error) {
	data := b.ledger.Read(ctx)
	cart := &model.Cart{ID: model.GuestCartID, Items: []model.CartItem{}}
	if len(data.Items) == 0 {
		return cart, nil
	}

	products, err := b.products.ProductsByIDs(ctx, data.ProductIDs())
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, entry := range data.Items {
		product, ok := byID[entry.ProductID]
		if !ok {
			b.logger.Debug().Str("product_id", entry.ProductID).Msg("guest cart product no longer resolves")
			continue
		}
		cart.Items = append(cart.Items, model.CartItem{
			ID:       entry.ProductID,
			Quantity: entry.Quantity,
			Product:  product,
		})
	}
	return cart, nil
}

func (b *LocalLedgerCart) Add(ctx context.Context, productID string, quantity int) error {
	return b.ledger.Upsert(ctx, productID, guestcart.Clamp(quantity))
}

func (b *LocalLedgerCart) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	return b.ledger.SetQuantity(ctx, itemID, quantity)
}

func (b *LocalLedgerCart) Remove(ctx context.Context, itemID string) error {
	return b.ledger.Remove(ctx, itemID)
}

func (b *LocalLedgerCart) Clear(ctx context.Context) error {
	return b.ledger.Clear(ctx)
}
