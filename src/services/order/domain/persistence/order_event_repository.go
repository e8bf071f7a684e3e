package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go-order-api/src/config"
	"go-order-api/src/services/events"
	"go-order-api/src/services/order/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderEventRepository stores lifecycle events whose publish failed, so a
// replay can pick them up later.
type OrderEventRepository struct {
	collection *mongo.Collection
}

type orderEventDocument struct {
	ID        string    `bson:"_id"`
	OrderID   string    `bson:"order_id"`
	Topic     string    `bson:"topic"`
	EventData []byte    `bson:"event_data"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
}

func NewOrderEventRepository(cfg *config.Config, client *mongo.Client) *OrderEventRepository {
	return &OrderEventRepository{
		collection: client.Database(cfg.MongoDBDatabaseName).Collection("order_events"),
	}
}

var _ domain.OrderEventRepository = (*OrderEventRepository)(nil)

func (r *OrderEventRepository) StoreFailedEvent(ctx context.Context, orderID, topic string, eventData []byte) error {
	if !json.Valid(eventData) {
		return errors.New("invalid JSON event data")
	}

	doc := orderEventDocument{
		ID:        primitive.NewObjectID().Hex(),
		OrderID:   orderID,
		Topic:     topic,
		EventData: eventData,
		Status:    events.EventStatusFailed,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *OrderEventRepository) GetUnreplayedEvents(ctx context.Context, limit int) ([]domain.FailedEvent, error) {
	filter := bson.M{"status": bson.M{"$in": []string{events.EventStatusFailed, events.EventStatusPending}}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var failed []domain.FailedEvent
	for cursor.Next(ctx) {
		var doc orderEventDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		failed = append(failed, domain.FailedEvent{
			ID:        doc.ID,
			OrderID:   doc.OrderID,
			Topic:     doc.Topic,
			EventData: doc.EventData,
			Status:    doc.Status,
			CreatedAt: doc.CreatedAt,
		})
	}
	return failed, cursor.Err()
}

func (r *OrderEventRepository) MarkEventAsReplaying(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, events.EventStatusReplaying)
}

func (r *OrderEventRepository) MarkEventAsCompleted(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, events.EventStatusCompleted)
}

func (r *OrderEventRepository) MarkEventAsFailed(ctx context.Context, eventID string) error {
	return r.setStatus(ctx, eventID, events.EventStatusFailed)
}

func (r *OrderEventRepository) setStatus(ctx context.Context, eventID, status string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": eventID}, bson.M{"$set": bson.M{"status": status}})
	return err
}
