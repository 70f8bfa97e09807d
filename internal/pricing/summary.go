package pricing

import (
	"math"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// Summary holds the derived figures shown next to a cart.
type Summary struct {
	ItemsCount    int   `json:"itemsCount"`
	SubtotalCents int64 `json:"subtotalCents"`
	DiscountCents int64 `json:"discountCents"`
	ShippingCents int64 `json:"shippingCents"`
	TotalCents    int64 `json:"totalCents"`
}

// ItemsCount returns the sum of line quantities.
func ItemsCount(cart *model.Cart) int {
	if cart == nil {
		return 0
	}
	n := 0
	for _, item := range cart.Items {
		n += item.Quantity
	}
	return n
}

// SubtotalCents sums discounted unit price times quantity over all lines.
func SubtotalCents(cart *model.Cart) int64 {
	if cart == nil {
		return 0
	}
	var total int64
	for _, item := range cart.Items {
		total += QuoteProduct(item.Product).Price * int64(item.Quantity)
	}
	return total
}

// Summarize computes the cart summary, applying the site-wide discount and
// shipping fee from settings. Nil settings mean no discount and free shipping.
func Summarize(cart *model.Cart, settings *model.SiteSettings) Summary {
	s := Summary{
		ItemsCount:    ItemsCount(cart),
		SubtotalCents: SubtotalCents(cart),
	}

	if settings != nil {
		s.ShippingCents = settings.ShippingCents
		s.DiscountCents = siteDiscount(s.SubtotalCents, settings.DiscountPercent)
	}

	s.TotalCents = max(0, s.SubtotalCents-s.DiscountCents+s.ShippingCents)
	return s
}

func siteDiscount(subtotal int64, percent float64) int64 {
	if math.IsNaN(percent) || percent <= 0 {
		return 0
	}
	pct := clampPercent(percent)
	return roundCents(decimal.NewFromInt(subtotal).Mul(decimal.NewFromFloat(pct)).Div(hundred))
}
