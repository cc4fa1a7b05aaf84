package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// service appends signed entries to the stock ledger. The append is the
// commit point; entries are never updated. INCREASE operations commute, and
// the DECREASE sufficiency check is advisory here (the order worker already
// checked) because unrelated operations may arrive out of order.
type service struct {
	products ProductGetter
	ledger   Ledger
	logger   *zap.Logger
}

func NewService(products ProductGetter, ledger Ledger, logger *zap.Logger) *service {
	return &service{
		products: products,
		ledger:   ledger,
		logger:   logger,
	}
}

// ProcessRecord validates one stock mutation and appends the ledger entry.
func (s *service) ProcessRecord(ctx context.Context, msg *api.StockUpdate) (*api.StockEntry, error) {
	if msg.ProductID == "" {
		return nil, api.Validationf("stock update missing productId")
	}
	if !msg.Operation.Valid() {
		return nil, api.Validationf("stock update has invalid operation %q", msg.Operation)
	}
	if msg.Quantity <= 0 {
		return nil, api.Validationf("stock update quantity must be positive, got %d", msg.Quantity)
	}

	product, err := s.products.Get(ctx, msg.ProductID)
	if err != nil {
		return nil, fmt.Errorf("stock update for product %s: %w", msg.ProductID, err)
	}
	if !product.IsActive {
		return nil, api.Validationf("product %s is inactive", product.ID)
	}

	if msg.Operation == api.StockDecrease {
		current, err := s.ledger.CurrentStock(ctx, msg.ProductID)
		if err != nil {
			return nil, err
		}
		if current < msg.Quantity {
			return nil, fmt.Errorf("product %s has %d in stock, decrease of %d rejected: %w",
				msg.ProductID, current, msg.Quantity, api.ErrInsufficientStock)
		}
	}

	entry := &api.StockEntry{
		ID:        "se-" + uuid.NewString(),
		ProductID: msg.ProductID,
		Type:      msg.Operation,
		Quantity:  msg.Quantity,
		Reason:    msg.Reason,
		OrderID:   msg.OrderID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("stock entry appended",
		zap.String("entry_id", entry.ID),
		zap.String("product_id", entry.ProductID),
		zap.String("operation", string(entry.Type)),
		zap.Int("quantity", entry.Quantity),
		zap.String("order_id", entry.OrderID),
	)

	return entry, nil
}
