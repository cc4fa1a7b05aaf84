package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// fakeOrders patches like the real store: the transition only lands when the
// row is still in the expected status.
type fakeOrders struct {
	orders map[string]*api.Order
	// raceTo flips the order to this status between the read and the patch.
	raceTo api.OrderStatus
}

func (f *fakeOrders) Get(_ context.Context, orderID string) (*api.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, api.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrders) ApplyTransition(_ context.Context, orderID string, from, to api.OrderStatus, reason, transactionID string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return api.ErrConflict
	}
	if f.raceTo != "" {
		order.Status = f.raceTo
		f.raceTo = ""
	}
	if order.Status != from {
		return api.ErrConflict
	}
	order.Status = to
	order.Reason = reason
	order.TransactionID = transactionID
	order.UpdatedAt = time.Now().UTC()
	return nil
}

func pendingOrder() *fakeOrders {
	return &fakeOrders{orders: map[string]*api.Order{
		"ord-1": {ID: "ord-1", Status: api.OrderPending},
	}}
}

func TestProcessRecordAppliesTransition(t *testing.T) {
	orders := pendingOrder()
	svc := NewService(orders, zap.NewNop())

	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID:       "ord-1",
		Status:        api.OrderProcessed,
		TransactionID: "txn-ord-1",
	})
	require.NoError(t, err)

	order := orders.orders["ord-1"]
	assert.Equal(t, api.OrderProcessed, order.Status)
	assert.Equal(t, "txn-ord-1", order.TransactionID)
}

func TestProcessRecordCancellationKeepsReason(t *testing.T) {
	orders := pendingOrder()
	svc := NewService(orders, zap.NewNop())

	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID:       "ord-1",
		Status:        api.OrderCancelled,
		Reason:        "Payment declined: insufficient funds",
		TransactionID: "txn-ord-1",
	})
	require.NoError(t, err)

	order := orders.orders["ord-1"]
	assert.Equal(t, api.OrderCancelled, order.Status)
	assert.Equal(t, "Payment declined: insufficient funds", order.Reason)
}

func TestProcessRecordReplayToTerminalOrderSameStatus(t *testing.T) {
	// A redelivered update that finds the order already in its target status
	// acks as a no-op rather than dead-lettering; the terminal row is left
	// untouched. Replays carrying a conflicting status still fail, which
	// TestProcessRecordInvalidTransitionIsFatal covers.
	for _, status := range []api.OrderStatus{api.OrderProcessed, api.OrderCancelled} {
		t.Run(string(status), func(t *testing.T) {
			orders := &fakeOrders{orders: map[string]*api.Order{
				"ord-1": {ID: "ord-1", Status: status, TransactionID: "txn-ord-1", Reason: "settled"},
			}}
			svc := NewService(orders, zap.NewNop())

			err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
				OrderID:       "ord-1",
				Status:        status,
				TransactionID: "txn-replay",
				Reason:        "replayed",
			})
			assert.NoError(t, err)

			order := orders.orders["ord-1"]
			assert.Equal(t, status, order.Status)
			assert.Equal(t, "txn-ord-1", order.TransactionID)
			assert.Equal(t, "settled", order.Reason)
		})
	}
}

func TestProcessRecordInvalidTransitionIsFatal(t *testing.T) {
	orders := &fakeOrders{orders: map[string]*api.Order{
		"ord-1": {ID: "ord-1", Status: api.OrderCancelled},
	}}
	svc := NewService(orders, zap.NewNop())

	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID: "ord-1",
		Status:  api.OrderProcessed,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrInvalidTransition)
	assert.Equal(t, api.OrderCancelled, orders.orders["ord-1"].Status)
}

func TestProcessRecordUnknownOrderIsFatal(t *testing.T) {
	svc := NewService(pendingOrder(), zap.NewNop())

	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID: "ord-ghost",
		Status:  api.OrderProcessed,
	})
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestProcessRecordInvalidTargetStatus(t *testing.T) {
	svc := NewService(pendingOrder(), zap.NewNop())

	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID: "ord-1",
		Status:  api.OrderPending,
	})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
}

func TestProcessRecordLostRaceSameTarget(t *testing.T) {
	orders := pendingOrder()
	orders.raceTo = api.OrderProcessed
	svc := NewService(orders, zap.NewNop())

	// A duplicate of the same update landed between the read and the patch;
	// the transition is already in place, so the record acks.
	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID: "ord-1",
		Status:  api.OrderProcessed,
	})
	assert.NoError(t, err)
}

func TestProcessRecordLostRaceConflictingTarget(t *testing.T) {
	orders := pendingOrder()
	orders.raceTo = api.OrderCancelled
	svc := NewService(orders, zap.NewNop())

	err := svc.ProcessRecord(context.Background(), &api.UpdateOrder{
		OrderID: "ord-1",
		Status:  api.OrderProcessed,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrInvalidTransition)
}
