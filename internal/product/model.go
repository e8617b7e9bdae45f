package product

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Media       []string             `bson:"media" json:"media"`
	Category    string               `bson:"category" json:"category"`
	Collections []primitive.ObjectID `bson:"collections" json:"collections"`
	Tags        []string             `bson:"tags" json:"tags"`
	Sizes       []string             `bson:"sizes" json:"sizes"`
	Price       float64              `bson:"price" json:"price"`
	Expense     float64              `bson:"expense" json:"expense"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type Collection struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title    string               `bson:"title" json:"title"`
	Products []primitive.ObjectID `bson:"products" json:"products"`
}

// Detail is a product with its collection references populated.
type Detail struct {
	Product
	Collections []Collection `json:"collections"`
}

// UpdateInput carries the full replacement state for a product edit.
// Last write wins; there is no protection against concurrent edits.
type UpdateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Media       []string `json:"media"`
	Category    string   `json:"category"`
	Collections []string `json:"collections"`
	Tags        []string `json:"tags"`
	Sizes       []string `json:"sizes"`
	Price       float64  `json:"price"`
	Expense     float64  `json:"expense"`
}
