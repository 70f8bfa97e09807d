package model

// ShippingInfo is the delivery address captured at checkout.
type ShippingInfo struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	Notes        string `json:"notes,omitempty"`
}

// CheckoutRequest is the payload for an authenticated checkout.
type CheckoutRequest struct {
	Shipping ShippingInfo `json:"shipping"`
}

// GuestCheckoutRequest is the payload for a guest checkout; the items are
// taken from the guest cart because the server has no copy of it.
type GuestCheckoutRequest struct {
	Shipping ShippingInfo `json:"shipping"`
	Items    []GuestEntry `json:"items"`
}

// Order is the subset of an order returned by the checkout endpoints.
type Order struct {
	ID string `json:"id"`
}

// OrderResponse wraps the order returned by the checkout endpoints.
type OrderResponse struct {
	Order Order `json:"order"`
}
