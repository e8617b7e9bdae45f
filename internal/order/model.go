package order

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Product is one persisted line item inside an order.
type Product struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Title    string             `bson:"title" json:"title"`
	Size     string             `bson:"size" json:"size"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
}

// Order is created once per checkout. Only Status mutates afterwards,
// driven by provider webhooks.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerClerkID string             `bson:"customerClerkId" json:"customerClerkId"`
	Products        []Product          `bson:"products" json:"products"`
	ShippingAddress interface{}        `bson:"shippingAddress" json:"shippingAddress"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	OrderCode       int64              `bson:"orderCode" json:"orderCode"`
	PaymentLink     string             `bson:"paymentLink" json:"paymentLink"`
	Status          Status             `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
