package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// TransactionStore persists payment outcomes. Transaction ids are derived
// from the order id, so broker redelivery of the same payment request hits
// the conditional insert and is treated as success.
type TransactionStore struct {
	collection *mongo.Collection
}

// Insert writes a transaction under the precondition that no transaction
// with its id exists.
func (s *TransactionStore) Insert(ctx context.Context, txn *api.Transaction) error {
	if _, err := s.collection.InsertOne(ctx, txn); err != nil {
		return classify(err)
	}
	return nil
}

// Get loads one transaction by id, or api.ErrNotFound.
func (s *TransactionStore) Get(ctx context.Context, id string) (*api.Transaction, error) {
	var txn api.Transaction
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if err != nil {
		return nil, classify(err)
	}
	return &txn, nil
}
