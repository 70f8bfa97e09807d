package model

// GuestCartID is the synthetic cart id used for anonymous carts.
const GuestCartID = "guest"

// CartItem is one line of a unified cart view. For guest carts the ID is the
// product id; for server carts it is the server-assigned item id.
type CartItem struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Product  Product `json:"product"`
}

// Cart is the render-ready cart, sourced either from the server or from the
// guest ledger joined with product lookups.
type Cart struct {
	ID    string     `json:"id"`
	Items []CartItem `json:"items"`
}

// IsGuest reports whether the cart was built from the local guest ledger.
func (c *Cart) IsGuest() bool {
	return c != nil && c.ID == GuestCartID
}

// GuestEntry is a single persisted guest cart line.
type GuestEntry struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
