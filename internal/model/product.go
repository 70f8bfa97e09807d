package model

// DiscountType identifies how a product discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Category represents a product category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductImage represents an image attached to a product.
type ProductImage struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// Product represents a catalogue product as returned by the storefront API.
// Prices are integer minor currency units.
type Product struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description,omitempty"`
	PriceCents    int64          `json:"priceCents"`
	Stock         int            `json:"stock"`
	IsActive      bool           `json:"isActive"`
	Images        []ProductImage `json:"images"`
	Category      *Category      `json:"category,omitempty"`
	ShippingCents *int64         `json:"shippingCents,omitempty"`
	DiscountValue *float64       `json:"discountValue,omitempty"`
	DiscountType  DiscountType   `json:"discountType,omitempty"`
}
