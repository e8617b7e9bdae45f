package payment

import (
	"context"
	"time"

	"comet-be/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// WebhookEvent is the durable record of one provider callback. The unique
// (provider, eventId) index makes replays observable as duplicates.
type WebhookEvent struct {
	Provider       string     `bson:"provider"`
	EventID        string     `bson:"eventId"`
	OrderCode      int64      `bson:"orderCode"`
	RawPayload     []byte     `bson:"rawPayload,omitempty"`
	SignatureValid bool       `bson:"signatureValid"`
	ReceivedAt     time.Time  `bson:"receivedAt"`
	ProcessedAt    *time.Time `bson:"processedAt,omitempty"`
	ProcessError   string     `bson:"processError,omitempty"`
}

type EventStore interface {
	// SaveWebhookEvent records the event; a replay of an already-seen event
	// returns isDuplicate=true and no error.
	SaveWebhookEvent(ctx context.Context, provider, eventID string, orderCode int64, payload []byte, signatureValid bool) (isDuplicate bool, err error)
	MarkWebhookProcessed(ctx context.Context, provider, eventID string) error
	MarkWebhookFailed(ctx context.Context, provider, eventID, reason string) error
}

type eventStore struct {
	coll *mongo.Collection
}

func NewEventStore(m *db.Mongo) EventStore {
	return &eventStore{coll: m.Database.Collection(db.CollWebhookEvents)}
}

func (s *eventStore) SaveWebhookEvent(ctx context.Context, provider, eventID string, orderCode int64, payload []byte, signatureValid bool) (bool, error) {
	_, err := s.coll.InsertOne(ctx, WebhookEvent{
		Provider:       provider,
		EventID:        eventID,
		OrderCode:      orderCode,
		RawPayload:     payload,
		SignatureValid: signatureValid,
		ReceivedAt:     time.Now(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (s *eventStore) MarkWebhookProcessed(ctx context.Context, provider, eventID string) error {
	now := time.Now()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"provider": provider, "eventId": eventID},
		bson.M{"$set": bson.M{"processedAt": now}},
	)
	return err
}

func (s *eventStore) MarkWebhookFailed(ctx context.Context, provider, eventID, reason string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"provider": provider, "eventId": eventID},
		bson.M{"$set": bson.M{"processError": reason}},
	)
	return err
}
