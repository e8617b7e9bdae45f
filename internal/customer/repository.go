package customer

import (
	"context"
	"errors"
	"time"

	"comet-be/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCustomerNotFound = errors.New("customer not found")

type Repository interface {
	// AppendOrder atomically finds-or-creates the customer for the identity
	// and appends the order reference. Two concurrent checkouts by the same
	// identity cannot create duplicate rows: the upsert runs under the
	// unique clerkId index.
	AppendOrder(ctx context.Context, id Identity, orderID primitive.ObjectID) (*Customer, error)
	GetByClerkID(ctx context.Context, clerkID string) (*Customer, error)
}

type repository struct {
	coll *mongo.Collection
}

func NewRepository(m *db.Mongo) Repository {
	return &repository{coll: m.Database.Collection(db.CollCustomers)}
}

func (r *repository) AppendOrder(ctx context.Context, id Identity, orderID primitive.ObjectID) (*Customer, error) {
	now := time.Now()

	filter := bson.M{"clerkId": id.ClerkID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"clerkId":   id.ClerkID,
			"name":      id.Name,
			"email":     id.Email,
			"createdAt": now,
		},
		"$push": bson.M{"orders": orderID},
		"$set":  bson.M{"updatedAt": now},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c Customer
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *repository) GetByClerkID(ctx context.Context, clerkID string) (*Customer, error) {
	var c Customer
	err := r.coll.FindOne(ctx, bson.M{"clerkId": clerkID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}
