package checkout

import "comet-be/internal/customer"

// CartProduct is the client-supplied product snapshot inside a cart entry.
type CartProduct struct {
	ID    string  `json:"_id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Size  string  `json:"size,omitempty"`
}

// CartItem mirrors the storefront cookie shape.
type CartItem struct {
	Item     CartProduct `json:"item"`
	Quantity int         `json:"quantity"`
}

// Input is everything the checkout workflow needs: identity, cart snapshot,
// shipping address and an optional caller-supplied idempotency key.
type Input struct {
	Customer        customer.Identity
	CartItems       []CartItem
	ShippingAddress interface{}
	IdempotencyKey  string
}

// Result echoes the inputs plus the provider artifacts, and is what a
// replayed idempotent checkout returns verbatim.
type Result struct {
	PaymentLink     string            `json:"paymentLink"`
	OrderCode       int64             `json:"orderCode"`
	CartItems       []CartItem        `json:"cartItems"`
	Customer        customer.Identity `json:"customer"`
	ShippingAddress interface{}       `json:"shippingAddress"`
}
