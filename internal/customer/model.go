package customer

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is keyed by the external auth subject id (clerkId). It is created
// on first checkout and only ever grows its order list afterwards.
type Customer struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ClerkID   string               `bson:"clerkId" json:"clerkId"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Orders    []primitive.ObjectID `bson:"orders" json:"orders"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Identity is the caller-supplied identity snapshot from the storefront.
type Identity struct {
	ClerkID string `json:"clerkId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}
