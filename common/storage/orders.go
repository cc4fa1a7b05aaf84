package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// OrderStore persists the order aggregate. Orders are created PENDING by the
// order worker and patched only by the update worker; rows are never
// deleted.
type OrderStore struct {
	collection *mongo.Collection
}

// Insert writes an order under the precondition that no order with its id
// exists. Duplicate delivery of the same orderId surfaces as api.ErrConflict
// and callers treat that as idempotent success.
func (s *OrderStore) Insert(ctx context.Context, order *api.Order) error {
	if _, err := s.collection.InsertOne(ctx, order); err != nil {
		return classify(err)
	}
	return nil
}

// Get loads an order by id or returns api.ErrNotFound.
func (s *OrderStore) Get(ctx context.Context, orderID string) (*api.Order, error) {
	var order api.Order
	err := s.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err != nil {
		return nil, classify(err)
	}
	return &order, nil
}

// Exists reports whether an order row exists; used by the stock reaper.
func (s *OrderStore) Exists(ctx context.Context, orderID string) (bool, error) {
	err := s.collection.FindOne(ctx, bson.M{"_id": orderID},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, classify(err)
	}
	return true, nil
}

// ApplyTransition patches status, reason and transactionId under the
// precondition that the row is still in the expected current status. A row
// that moved concurrently (or does not exist) matches nothing and the caller
// distinguishes the two by re-reading.
func (s *OrderStore) ApplyTransition(ctx context.Context, orderID string, from, to api.OrderStatus, reason, transactionID string) error {
	update := bson.M{
		"status":    to,
		"updatedAt": time.Now().UTC(),
	}
	if reason != "" {
		update["reason"] = reason
	}
	if transactionID != "" {
		update["transactionId"] = transactionID
	}

	filter := bson.M{"_id": orderID, "status": from}
	result, err := s.collection.UpdateOne(ctx, filter, bson.M{"$set": update})
	if err != nil {
		return classify(err)
	}
	if result.MatchedCount == 0 {
		return api.ErrConflict
	}
	return nil
}
