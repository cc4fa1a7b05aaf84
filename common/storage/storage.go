// Package storage holds the MongoDB stores shared by the pipeline workers.
// All mutual exclusion is delegated to conditional writes: documents are
// keyed by explicit _id values and duplicate-key failures surface as
// api.ErrConflict, which create paths treat as idempotent success.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// Config names the database and collections. Collection names come from the
// environment so deployments can point workers at shared tables.
type Config struct {
	Database              string
	LeadCollection        string
	OrderCollection       string
	ProductCollection     string
	StockCollection       string
	TransactionCollection string
}

// DefaultConfig matches the deployed table names. The stock ledger name is
// fixed.
func DefaultConfig() Config {
	return Config{
		Database:              "order-pipeline",
		LeadCollection:        "leads",
		OrderCollection:       "orders",
		ProductCollection:     "products",
		StockCollection:       "product-stock",
		TransactionCollection: "transactions",
	}
}

// Stores bundles the per-collection stores over one client.
type Stores struct {
	Leads        *LeadStore
	Orders       *OrderStore
	Products     *ProductStore
	Stock        *StockStore
	Transactions *TransactionStore
}

func NewStores(client *mongo.Client, cfg Config) *Stores {
	db := client.Database(cfg.Database)
	return &Stores{
		Leads:        &LeadStore{collection: db.Collection(cfg.LeadCollection)},
		Orders:       &OrderStore{collection: db.Collection(cfg.OrderCollection)},
		Products:     &ProductStore{collection: db.Collection(cfg.ProductCollection)},
		Stock:        &StockStore{collection: db.Collection(cfg.StockCollection)},
		Transactions: &TransactionStore{collection: db.Collection(cfg.TransactionCollection)},
	}
}

// EnsureIndexes creates the secondary indexes the workers query through:
// leads by email, the stock ledger by productId and by the reaper's scan
// shape.
func (s *Stores) EnsureIndexes(ctx context.Context) error {
	_, err := s.Leads.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create lead email index: %w", err)
	}

	_, err = s.Stock.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "productId", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create stock ledger indexes: %w", err)
	}

	return nil
}

// Connect establishes and pings a MongoDB client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// classify maps driver errors onto the shared taxonomy. Unknown errors are
// transient so the broker redelivers instead of dead-lettering on a network
// blip.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return api.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return api.ErrConflict
	default:
		return api.Transient(err)
	}
}
