package order

import (
	"context"
	"errors"
	"time"

	"comet-be/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Repository interface {
	Insert(ctx context.Context, o *Order) (primitive.ObjectID, error)
	GetByOrderCode(ctx context.Context, orderCode int64) (*Order, error)
	MarkPaid(ctx context.Context, orderCode int64) error
	MarkFailed(ctx context.Context, orderCode int64) error
}

type repository struct {
	coll *mongo.Collection
}

func NewRepository(m *db.Mongo) Repository {
	return &repository{coll: m.Database.Collection(db.CollOrders)}
}

func (r *repository) Insert(ctx context.Context, o *Order) (primitive.ObjectID, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}

	res, err := r.coll.InsertOne(ctx, o)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateOrderCode
		}
		return primitive.NilObjectID, err
	}

	id, _ := res.InsertedID.(primitive.ObjectID)
	o.ID = id
	return id, nil
}

func (r *repository) GetByOrderCode(ctx context.Context, orderCode int64) (*Order, error) {
	var o Order
	err := r.coll.FindOne(ctx, bson.M{"orderCode": orderCode}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *repository) MarkPaid(ctx context.Context, orderCode int64) error {
	return r.setStatus(ctx, orderCode, StatusPaid)
}

func (r *repository) MarkFailed(ctx context.Context, orderCode int64) error {
	return r.setStatus(ctx, orderCode, StatusFailed)
}

// setStatus only moves orders out of pending: webhook replays and
// out-of-order deliveries must not flip a settled order.
func (r *repository) setStatus(ctx context.Context, orderCode int64, status Status) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"orderCode": orderCode, "status": StatusPending},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// either unknown order or already settled
		n, err := r.coll.CountDocuments(ctx, bson.M{"orderCode": orderCode})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrOrderNotFound
		}
	}
	return nil
}
