package model

// SiteSettings holds the site-wide settings the client consumes.
// Only the pricing-relevant and descriptive fields are modelled.
type SiteSettings struct {
	SiteName        string  `json:"siteName"`
	SiteDescription string  `json:"siteDescription"`
	LogoURL         *string `json:"logoUrl"`
	PrimaryColor    string  `json:"primaryColor"`
	AccentColor     string  `json:"accentColor"`
	ShippingCents   int64   `json:"shippingCents"`
	DiscountPercent float64 `json:"discountPercent"`
	UpdatedAt       string  `json:"updatedAt"`
}
