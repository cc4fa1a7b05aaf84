package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// service advances the order state machine. The store patch is conditional on
// the status the worker just read, so two racing updates cannot both land; a
// redelivered message that finds its transition already applied acks quietly.
type service struct {
	orders OrderPatcher
	logger *zap.Logger
}

func NewService(orders OrderPatcher, logger *zap.Logger) *service {
	return &service{
		orders: orders,
		logger: logger,
	}
}

// ProcessRecord applies one status transition.
func (s *service) ProcessRecord(ctx context.Context, msg *api.UpdateOrder) error {
	if msg.OrderID == "" {
		return api.Validationf("order update missing orderId")
	}
	if msg.Status != api.OrderProcessed && msg.Status != api.OrderCancelled {
		return api.Validationf("order update for %s has invalid target status %q", msg.OrderID, msg.Status)
	}

	order, err := s.orders.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("update for order %s: %w", msg.OrderID, err)
	}

	if order.Status == msg.Status {
		s.logger.Info("transition already applied",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return nil
	}

	if !order.Status.CanTransitionTo(msg.Status) {
		return fmt.Errorf("order %s cannot move from %s to %s: %w",
			order.ID, order.Status, msg.Status, api.ErrInvalidTransition)
	}

	err = s.orders.ApplyTransition(ctx, order.ID, order.Status, msg.Status, msg.Reason, msg.TransactionID)
	if err != nil {
		if !errors.Is(err, api.ErrConflict) {
			return err
		}
		// The row moved between the read and the patch. Re-read to decide
		// whether the race landed our transition or a conflicting one.
		current, getErr := s.orders.Get(ctx, order.ID)
		if getErr != nil {
			return fmt.Errorf("update for order %s: %w", order.ID, getErr)
		}
		if current.Status == msg.Status {
			s.logger.Info("transition applied concurrently",
				zap.String("order_id", order.ID),
				zap.String("status", string(current.Status)),
			)
			return nil
		}
		return fmt.Errorf("order %s moved to %s while applying %s: %w",
			order.ID, current.Status, msg.Status, api.ErrInvalidTransition)
	}

	s.logger.Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(msg.Status)),
		zap.String("transaction_id", msg.TransactionID),
		zap.String("reason", msg.Reason),
	)

	return nil
}
