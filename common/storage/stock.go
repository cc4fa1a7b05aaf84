package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// StockStore is the append-only signed ledger. Entries are never updated or
// deleted; the current stock of a product is the ledger sum.
type StockStore struct {
	collection *mongo.Collection
}

// Append commits one ledger entry under the precondition that no entry with
// its id exists. The deterministic compensation ids rely on the conflict to
// stay idempotent.
func (s *StockStore) Append(ctx context.Context, entry *api.StockEntry) error {
	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return classify(err)
	}
	return nil
}

// CurrentStock recomputes sum(INCREASE) - sum(DECREASE) for one product from
// the ledger. Reads are unlocked snapshots; callers that care about
// staleness re-read.
func (s *StockStore) CurrentStock(ctx context.Context, productID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"productId": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$type",
			"total": bson.M{"$sum": "$quantity"},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, classify(err)
	}
	defer cursor.Close(ctx)

	current := 0
	for cursor.Next(ctx) {
		var group struct {
			Type  api.StockOperation `bson:"_id"`
			Total int                `bson:"total"`
		}
		if err := cursor.Decode(&group); err != nil {
			return 0, classify(err)
		}
		switch group.Type {
		case api.StockIncrease:
			current += group.Total
		case api.StockDecrease:
			current -= group.Total
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, classify(err)
	}

	return current, nil
}

// LedgerCursor marks the last scanned position of a stale-decrease page.
type LedgerCursor struct {
	CreatedAt time.Time
	ID        string
}

// FindStaleDecreases returns one page of order-tagged DECREASE entries created
// before the cutoff, in (createdAt, id) order, strictly after the cursor.
// Settled and already-compensated entries stay in the ledger forever, so
// callers must page with the cursor to reach the whole backlog; a scan pinned
// to the oldest batch would stop short of newer orphans.
func (s *StockStore) FindStaleDecreases(ctx context.Context, cutoff time.Time, after LedgerCursor, limit int64) ([]api.StockEntry, error) {
	filter := bson.M{
		"type":    api.StockDecrease,
		"orderId": bson.M{"$exists": true, "$ne": ""},
	}
	if after.CreatedAt.IsZero() {
		filter["createdAt"] = bson.M{"$lt": cutoff}
	} else {
		// Entries sharing the cursor's createdAt are already below the cutoff.
		filter["$or"] = []bson.M{
			{"createdAt": bson.M{"$gt": after.CreatedAt, "$lt": cutoff}},
			{"createdAt": after.CreatedAt, "_id": bson.M{"$gt": after.ID}},
		}
	}

	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	var entries []api.StockEntry
	for cursor.Next(ctx) {
		var entry api.StockEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, classify(err)
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(err)
	}

	return entries, nil
}
