// Package checkout places orders from the current cart.
package checkout

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Session is the authentication state checkout depends on.
type Session interface {
	IsAuthenticated() bool
	AuthedFetch(ctx context.Context, method, path string, body, out any) error
}

// Doer sends unauthenticated API requests.
type Doer interface {
	Do(ctx context.Context, req apiclient.Request, out any) error
}

// Cart is the cart view checkout reads and clears.
type Cart interface {
	Cart() *model.Cart
	Clear(ctx context.Context) error
}

// Service turns the current cart into an order.
type Service struct {
	session Session
	client  Doer
	cart    Cart
	logger  zerolog.Logger
}

// NewService creates a checkout service.
func NewService(session Session, client Doer, cart Cart, logger zerolog.Logger) *Service {
	return &Service{
		session: session,
		client:  client,
		cart:    cart,
		logger:  logger.With().Str("component", "checkout").Logger(),
	}
}

// NormalizeShipping trims every field and rejects missing required ones.
func NormalizeShipping(info model.ShippingInfo) (model.ShippingInfo, error) {
	out := model.ShippingInfo{
		FullName:     strings.TrimSpace(info.FullName),
		Phone:        strings.TrimSpace(info.Phone),
		AddressLine1: strings.TrimSpace(info.AddressLine1),
		City:         strings.TrimSpace(info.City),
		Notes:        strings.TrimSpace(info.Notes),
	}
	if out.FullName == "" || out.Phone == "" || out.AddressLine1 == "" || out.City == "" {
		return model.ShippingInfo{}, model.ErrInvalidShipping
	}
	return out, nil
}

// Checkout places an order for the current cart and empties the cart.
// Signed-in shoppers check out their server cart; guests send the lines
// of the cart view. The order id is returned even if emptying the cart
// afterwards fails.
func (s *Service) Checkout(ctx context.Context, info model.ShippingInfo) (string, error) {
	shipping, err := NormalizeShipping(info)
	if err != nil {
		return "", err
	}

	view := s.cart.Cart()
	if view == nil || len(view.Items) == 0 {
		return "", model.ErrEmptyCart
	}

	var resp model.OrderResponse
	if s.session.IsAuthenticated() {
		err = s.session.AuthedFetch(ctx, http.MethodPost, "/api/orders/checkout",
			model.CheckoutRequest{Shipping: shipping}, &resp)
	} else {
		err = s.client.Do(ctx, apiclient.Request{
			Method: http.MethodPost,
			Path:   "/api/orders/guest-checkout",
			Body:   model.GuestCheckoutRequest{Shipping: shipping, Items: guestItems(view)},
		}, &resp)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("checkout failed")
		return "", err
	}

	s.logger.Info().Str("order_id", resp.Order.ID).Int("lines", len(view.Items)).Msg("order placed")

	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Str("order_id", resp.Order.ID).Msg("failed to clear cart after checkout")
	}
	return resp.Order.ID, nil
}

func guestItems(view *model.Cart) []model.GuestEntry {
	items := make([]model.GuestEntry, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, model.GuestEntry{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	return items
}
