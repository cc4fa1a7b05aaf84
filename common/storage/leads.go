package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// LeadStore persists deduplicated customer identities. Both the lead worker
// and the order worker run the same find-or-create; the email index narrows
// the candidate set and the cpf match picks the lead.
type LeadStore struct {
	collection *mongo.Collection
}

// FindByEmailAndCPF returns a lead with the exact (email, cpf) pair, or
// api.ErrNotFound.
func (s *LeadStore) FindByEmailAndCPF(ctx context.Context, email, cpf string) (*api.Lead, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var lead api.Lead
		if err := cursor.Decode(&lead); err != nil {
			return nil, classify(err)
		}
		if lead.CPF == cpf {
			return &lead, nil
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(err)
	}

	return nil, api.ErrNotFound
}

// Insert writes a lead under the precondition that no lead with its id
// exists. Duplicate ids surface as api.ErrConflict.
func (s *LeadStore) Insert(ctx context.Context, lead *api.Lead) error {
	if _, err := s.collection.InsertOne(ctx, lead); err != nil {
		return classify(err)
	}
	return nil
}

// FindOrCreate looks a lead up by its normalized (email, cpf) pair and
// inserts a fresh one on miss. Concurrent callers can race through the
// lookup window and create duplicate pairs with distinct ids; any matching
// lead is valid, so each caller simply keeps the lead it observed.
func (s *LeadStore) FindOrCreate(ctx context.Context, customer api.CustomerData) (*api.Lead, bool, error) {
	lead, err := s.FindByEmailAndCPF(ctx, customer.Email, customer.CPF)
	if err == nil {
		return lead, false, nil
	}
	if !errors.Is(err, api.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	created := &api.Lead{
		ID:        "lead-" + uuid.NewString(),
		CPF:       customer.CPF,
		Email:     customer.Email,
		Name:      customer.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Insert(ctx, created); err != nil {
		if errors.Is(err, api.ErrConflict) {
			// A freshly generated id colliding means a concurrent creator won;
			// re-read and use whichever lead exists now.
			existing, ferr := s.FindByEmailAndCPF(ctx, customer.Email, customer.CPF)
			if ferr != nil {
				return nil, false, fmt.Errorf("lead conflict re-read failed: %w", ferr)
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return created, true, nil
}
