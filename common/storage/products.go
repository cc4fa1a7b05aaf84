package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// ProductStore reads the catalog. The pipeline never writes products.
type ProductStore struct {
	collection *mongo.Collection
}

// Get loads a product by id or returns api.ErrNotFound.
func (s *ProductStore) Get(ctx context.Context, productID string) (*api.Product, error) {
	var product api.Product
	err := s.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}
