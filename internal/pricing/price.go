// Package pricing derives effective prices and cart totals in integer minor
// currency units. Every rounding step goes through the same half-up rule so
// that product cards and cart totals always agree.
package pricing

import (
	"math"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// MaxPercentage caps percentage discounts, both per product and site-wide.
const MaxPercentage = 90

var hundred = decimal.NewFromInt(100)

// PriceInput is the pricing-relevant subset of a product.
type PriceInput struct {
	PriceCents    int64
	DiscountValue *float64
	DiscountType  model.DiscountType
}

// Quote is the effective price of a product at a point in time.
type Quote struct {
	Price              int64   `json:"price"`
	OriginalPrice      int64   `json:"originalPrice"`
	HasDiscount        bool    `json:"hasDiscount"`
	DiscountPercentage float64 `json:"discountPercentage"`
}

// ComputePrice applies the optional discount descriptor to the base price.
// It never fails: missing, non-positive, non-finite or unknown discounts
// yield the base price unchanged.
func ComputePrice(in PriceInput) Quote {
	original := in.PriceCents
	noDiscount := Quote{Price: original, OriginalPrice: original}

	if in.DiscountValue == nil || in.DiscountType == "" {
		return noDiscount
	}
	value := *in.DiscountValue
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return noDiscount
	}

	switch in.DiscountType {
	case model.DiscountFixed:
		discount := roundCents(decimal.NewFromFloat(value).Mul(hundred))
		price := max(0, original-discount)
		q := Quote{Price: price, OriginalPrice: original, HasDiscount: price < original}
		if q.HasDiscount && original > 0 {
			saved := decimal.NewFromInt(original - price).Mul(hundred).Div(decimal.NewFromInt(original))
			q.DiscountPercentage = float64(roundCents(saved))
		}
		return q

	case model.DiscountPercentage:
		pct := clampPercent(value)
		discount := roundCents(decimal.NewFromInt(original).Mul(decimal.NewFromFloat(pct)).Div(hundred))
		price := max(0, original-discount)
		q := Quote{Price: price, OriginalPrice: original, HasDiscount: price < original}
		if q.HasDiscount {
			q.DiscountPercentage = pct
		}
		return q
	}

	return noDiscount
}

// QuoteProduct computes the quote for a catalogue product.
func QuoteProduct(p model.Product) Quote {
	return ComputePrice(PriceInput{
		PriceCents:    p.PriceCents,
		DiscountValue: p.DiscountValue,
		DiscountType:  p.DiscountType,
	})
}

// roundCents rounds half away from zero to a whole minor unit.
func roundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(MaxPercentage, v))
}
