package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/broker"
	"github.com/lucaslcw/order-pipeline/common/mask"
	"github.com/lucaslcw/order-pipeline/payments/processor"
)

// service charges orders and records the authoritative payment outcome.
// Transaction ids derive from the order id, so the first stored outcome wins:
// a redelivered request that re-simulates a different result hits the
// conditional insert, and the update message is rebuilt from the stored row.
type service struct {
	orders       OrderGetter
	transactions TransactionWriter
	gateway      processor.Processor
	publisher    broker.Publisher
	logger       *zap.Logger
}

func NewService(orders OrderGetter, transactions TransactionWriter, gateway processor.Processor, publisher broker.Publisher, logger *zap.Logger) *service {
	return &service{
		orders:       orders,
		transactions: transactions,
		gateway:      gateway,
		publisher:    publisher,
		logger:       logger,
	}
}

// ProcessRecord charges one payment request end to end: load the order, call
// the gateway, persist the masked transaction and emit the status update.
func (s *service) ProcessRecord(ctx context.Context, msg *api.ProcessTransaction) (*api.Transaction, error) {
	if msg.OrderID == "" {
		return nil, api.Validationf("payment request missing orderId")
	}
	if msg.OrderTotalValue.Sign() < 0 {
		return nil, api.Validationf("payment request for order %s has negative amount", msg.OrderID)
	}
	card := msg.PaymentData
	if card.CardNumber == "" || card.CardHolderName == "" || card.ExpiryMonth == "" || card.ExpiryYear == "" || card.CVV == "" {
		return nil, api.Validationf("payment request for order %s has incomplete card data", msg.OrderID)
	}

	order, err := s.orders.Get(ctx, msg.OrderID)
	if err != nil {
		return nil, fmt.Errorf("payment for order %s: %w", msg.OrderID, err)
	}
	if order.Status != api.OrderPending {
		s.logger.Info("order no longer pending, skipping charge",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return nil, nil
	}

	result, err := s.gateway.Charge(ctx, msg)
	if err != nil {
		if api.IsGatewayError(err) {
			return nil, s.recordGatewayFailure(ctx, msg, err)
		}
		return nil, fmt.Errorf("charge for order %s: %w", msg.OrderID, err)
	}

	now := time.Now().UTC()
	txn := &api.Transaction{
		ID:             "txn-" + msg.OrderID,
		OrderID:        msg.OrderID,
		Amount:         msg.OrderTotalValue,
		PaymentStatus:  result.Status,
		AuthCode:       result.AuthCode,
		ProcessingTime: result.Duration.Milliseconds(),
		FailureReason:  result.FailureReason,
		CardData:       maskCard(msg.PaymentData),
		AddressData:    msg.AddressData,
		CustomerData:   maskCustomer(msg.CustomerData),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.transactions.Insert(ctx, txn); err != nil {
		if !errors.Is(err, api.ErrConflict) {
			return nil, err
		}
		// An earlier attempt already decided this payment. Its row is the
		// truth; re-emit the update from it instead of this simulation.
		stored, getErr := s.transactions.Get(ctx, txn.ID)
		if getErr != nil {
			return nil, getErr
		}
		s.logger.Info("transaction already recorded, re-emitting update",
			zap.String("transaction_id", stored.ID),
			zap.String("status", string(stored.PaymentStatus)),
		)
		txn = stored
	}

	update := api.UpdateOrder{
		OrderID:       txn.OrderID,
		TransactionID: txn.ID,
	}
	if txn.PaymentStatus == api.PaymentApproved {
		update.Status = api.OrderProcessed
	} else {
		update.Status = api.OrderCancelled
		update.Reason = "Payment declined: " + txn.FailureReason
	}

	if err := s.publishUpdate(ctx, update); err != nil {
		return nil, err
	}

	s.logger.Info("payment processed",
		zap.String("order_id", txn.OrderID),
		zap.String("transaction_id", txn.ID),
		zap.String("status", string(txn.PaymentStatus)),
		zap.Int64("processing_ms", txn.ProcessingTime),
	)

	return txn, nil
}

// recordGatewayFailure persists the ERROR outcome under its own transaction
// id and cancels the order, then hands the original error back so the record
// is dead-lettered for inspection.
func (s *service) recordGatewayFailure(ctx context.Context, msg *api.ProcessTransaction, cause error) error {
	now := time.Now().UTC()
	txn := &api.Transaction{
		ID:            "txn-" + msg.OrderID + "-err",
		OrderID:       msg.OrderID,
		Amount:        msg.OrderTotalValue,
		PaymentStatus: api.PaymentError,
		FailureReason: cause.Error(),
		CardData:      maskCard(msg.PaymentData),
		AddressData:   msg.AddressData,
		CustomerData:  maskCustomer(msg.CustomerData),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.transactions.Insert(ctx, txn); err != nil && !errors.Is(err, api.ErrConflict) {
		return err
	}

	update := api.UpdateOrder{
		OrderID:       msg.OrderID,
		Status:        api.OrderCancelled,
		Reason:        "Payment processing error: " + cause.Error(),
		TransactionID: txn.ID,
	}
	if err := s.publishUpdate(ctx, update); err != nil {
		return err
	}

	s.logger.Error("payment gateway failure",
		zap.String("order_id", msg.OrderID),
		zap.String("transaction_id", txn.ID),
		zap.Error(cause),
	)

	return cause
}

func (s *service) publishUpdate(ctx context.Context, update api.UpdateOrder) error {
	return s.publisher.Publish(ctx, broker.UpdateOrderExchange, broker.UpdateOrderQueue, update, map[string]any{
		"orderId":       update.OrderID,
		"status":        string(update.Status),
		"transactionId": update.TransactionID,
	})
}

func maskCard(p api.PaymentData) api.MaskedCard {
	return api.MaskedCard{
		CardNumber:     mask.CardNumber(p.CardNumber),
		CardHolderName: p.CardHolderName,
		ExpiryMonth:    p.ExpiryMonth,
		ExpiryYear:     p.ExpiryYear,
		CVV:            mask.CVV(p.CVV),
	}
}

func maskCustomer(c api.CustomerData) api.CustomerData {
	return api.CustomerData{
		CPF:   mask.CPF(c.CPF),
		Email: c.Email,
		Name:  c.Name,
	}
}
