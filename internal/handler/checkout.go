package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"comet-be/internal/apperr"
	"comet-be/internal/auth"
	"comet-be/internal/checkout"
	"comet-be/internal/customer"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	svc checkout.Service
}

func NewCheckoutHandler(svc checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// checkoutBody is the JSON request shape for API callers. Browser carts
// arrive in cookies instead, so every field is optional here.
type checkoutBody struct {
	Customer        *customer.Identity  `json:"customer"`
	CartItems       []checkout.CartItem `json:"cartItems"`
	ShippingAddress interface{}         `json:"shippingAddress"`
}

// Checkout handles POST /api/checkout. The storefront ships customer, cart
// and address as JSON cookies; a JSON body works for non-browser callers.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	input, err := h.buildInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	input.IdempotencyKey = c.GetHeader("Idempotency-Key")

	res, err := h.svc.Checkout(c.Request.Context(), *input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *CheckoutHandler) buildInput(c *gin.Context) (*checkout.Input, error) {
	var body checkoutBody
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			return nil, apperr.Validation("Invalid request body")
		}
	}

	input := &checkout.Input{
		CartItems:       body.CartItems,
		ShippingAddress: body.ShippingAddress,
	}
	if body.Customer != nil {
		input.Customer = *body.Customer
	}

	if len(input.CartItems) == 0 {
		if err := cookieJSON(c, "cartItems", &input.CartItems); err != nil {
			return nil, err
		}
	}
	if input.ShippingAddress == nil {
		if err := cookieJSON(c, "shippingAddress", &input.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if input.Customer.ClerkID == "" {
		var ident customer.Identity
		if err := cookieJSON(c, "customer", &ident); err == nil {
			input.Customer = ident
		}
	}
	// the session is authoritative for who is checking out
	if id, ok := auth.UserIDFromContext(c.Request.Context()); ok {
		input.Customer.ClerkID = id
		if input.Customer.Name == "" {
			input.Customer.Name = auth.UserNameFromContext(c.Request.Context())
		}
		if input.Customer.Email == "" {
			input.Customer.Email = auth.UserEmailFromContext(c.Request.Context())
		}
	}

	if input.Customer.ClerkID == "" || len(input.CartItems) == 0 || input.ShippingAddress == nil {
		return nil, apperr.Validation("Missing data in cookies")
	}

	return input, nil
}

// cookieJSON decodes a JSON document stored in a cookie. Storefront cookies
// are URL-encoded, so the value is unescaped before unmarshalling.
func cookieJSON(c *gin.Context, name string, dst interface{}) error {
	raw, err := c.Cookie(name)
	if err != nil || raw == "" {
		return apperr.Validation("Missing data in cookies")
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		decoded = raw
	}

	if err := json.Unmarshal([]byte(decoded), dst); err != nil {
		return apperr.Validation("Missing data in cookies")
	}
	return nil
}
