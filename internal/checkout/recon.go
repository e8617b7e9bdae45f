package checkout

import (
	"context"
	"time"

	"comet-be/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReconciliationRecord captures the workflow's real hazard: a payment link
// was issued but a persistence step failed afterwards. The record keeps the
// link recoverable and lets the provider webhook finish the job.
type ReconciliationRecord struct {
	Fingerprint string     `bson:"fingerprint"`
	OrderCode   int64      `bson:"orderCode"`
	PaymentLink string     `bson:"paymentLink"`
	Reason      string     `bson:"reason"`
	CreatedAt   time.Time  `bson:"createdAt"`
	ResolvedAt  *time.Time `bson:"resolvedAt,omitempty"`
}

type ReconRepository interface {
	Save(ctx context.Context, rec *ReconciliationRecord) error
	// Resolve marks every open record for the order code as handled.
	Resolve(ctx context.Context, orderCode int64) error
}

type reconRepository struct {
	coll *mongo.Collection
}

func NewReconRepository(m *db.Mongo) ReconRepository {
	return &reconRepository{coll: m.Database.Collection(db.CollReconciliation)}
}

func (r *reconRepository) Save(ctx context.Context, rec *ReconciliationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.coll.InsertOne(ctx, rec)
	return err
}

func (r *reconRepository) Resolve(ctx context.Context, orderCode int64) error {
	now := time.Now()
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"orderCode": orderCode, "resolvedAt": nil},
		bson.M{"$set": bson.M{"resolvedAt": now}},
	)
	return err
}
