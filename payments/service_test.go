package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/broker"
	"github.com/lucaslcw/order-pipeline/common/money"
	"github.com/lucaslcw/order-pipeline/payments/processor"
)

type fakeOrderGetter struct {
	orders map[string]*api.Order
}

func (f *fakeOrderGetter) Get(_ context.Context, orderID string) (*api.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, api.ErrNotFound
	}
	return order, nil
}

type fakeTransactions struct {
	stored map[string]*api.Transaction
}

func (f *fakeTransactions) Insert(_ context.Context, txn *api.Transaction) error {
	if _, exists := f.stored[txn.ID]; exists {
		return api.ErrConflict
	}
	f.stored[txn.ID] = txn
	return nil
}

func (f *fakeTransactions) Get(_ context.Context, id string) (*api.Transaction, error) {
	txn, ok := f.stored[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	return txn, nil
}

type fakeGateway struct {
	result  *processor.Result
	err     error
	charges int
}

func (f *fakeGateway) Charge(_ context.Context, _ *api.ProcessTransaction) (*processor.Result, error) {
	f.charges++
	return f.result, f.err
}

type published struct {
	exchange   string
	routingKey string
	msg        any
	attributes map[string]any
}

type fakePublisher struct {
	mu        sync.Mutex
	published []published
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, exchange, routingKey string, msg any, attributes map[string]any) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, published{exchange, routingKey, msg, attributes})
	return nil
}

type fixture struct {
	svc          *service
	orders       *fakeOrderGetter
	transactions *fakeTransactions
	gateway      *fakeGateway
	publisher    *fakePublisher
}

func newFixture(result *processor.Result, gatewayErr error) *fixture {
	orders := &fakeOrderGetter{orders: map[string]*api.Order{
		"ord-1": {ID: "ord-1", Status: api.OrderPending, TotalValue: money.MustFromString("49.97")},
	}}
	transactions := &fakeTransactions{stored: map[string]*api.Transaction{}}
	gateway := &fakeGateway{result: result, err: gatewayErr}
	publisher := &fakePublisher{}

	return &fixture{
		svc:          NewService(orders, transactions, gateway, publisher, zap.NewNop()),
		orders:       orders,
		transactions: transactions,
		gateway:      gateway,
		publisher:    publisher,
	}
}

func paymentRequest() *api.ProcessTransaction {
	return &api.ProcessTransaction{
		OrderID:         "ord-1",
		OrderTotalValue: money.MustFromString("49.97"),
		PaymentData: api.PaymentData{
			CardNumber:     "4111111111111111",
			CardHolderName: "ANA SILVA",
			ExpiryMonth:    "03",
			ExpiryYear:     "2028",
			CVV:            "123",
		},
		CustomerData: api.CustomerData{
			CPF:   "12345678901",
			Email: "ana.silva@example.com",
			Name:  "Ana Silva",
		},
	}
}

func lastUpdate(t *testing.T, p *fakePublisher) api.UpdateOrder {
	t.Helper()
	require.NotEmpty(t, p.published)
	msg := p.published[len(p.published)-1]
	assert.Equal(t, broker.UpdateOrderExchange, msg.exchange)
	assert.Equal(t, broker.UpdateOrderQueue, msg.routingKey)
	update, ok := msg.msg.(api.UpdateOrder)
	require.True(t, ok)
	return update
}

func TestProcessRecordApproved(t *testing.T) {
	f := newFixture(&processor.Result{
		Status:   api.PaymentApproved,
		AuthCode: "AUTH-000042",
		Duration: 350 * time.Millisecond,
	}, nil)

	txn, err := f.svc.ProcessRecord(context.Background(), paymentRequest())
	require.NoError(t, err)
	require.NotNil(t, txn)

	assert.Equal(t, "txn-ord-1", txn.ID)
	assert.Equal(t, api.PaymentApproved, txn.PaymentStatus)
	assert.Equal(t, "AUTH-000042", txn.AuthCode)
	assert.Equal(t, int64(350), txn.ProcessingTime)
	assert.Contains(t, f.transactions.stored, "txn-ord-1")

	update := lastUpdate(t, f.publisher)
	assert.Equal(t, "ord-1", update.OrderID)
	assert.Equal(t, api.OrderProcessed, update.Status)
	assert.Equal(t, "txn-ord-1", update.TransactionID)
	assert.Empty(t, update.Reason)
}

func TestProcessRecordDeclined(t *testing.T) {
	f := newFixture(&processor.Result{
		Status:        api.PaymentDeclined,
		FailureReason: "insufficient funds",
	}, nil)

	txn, err := f.svc.ProcessRecord(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Equal(t, api.PaymentDeclined, txn.PaymentStatus)

	update := lastUpdate(t, f.publisher)
	assert.Equal(t, api.OrderCancelled, update.Status)
	assert.Equal(t, "Payment declined: insufficient funds", update.Reason)
}

func TestProcessRecordNeverStoresRawCardData(t *testing.T) {
	f := newFixture(&processor.Result{Status: api.PaymentApproved, AuthCode: "AUTH-000001"}, nil)

	txn, err := f.svc.ProcessRecord(context.Background(), paymentRequest())
	require.NoError(t, err)

	assert.Equal(t, "****-****-****-1111", txn.CardData.CardNumber)
	assert.Equal(t, "***", txn.CardData.CVV)
	assert.Equal(t, "***.***.***-01", txn.CustomerData.CPF)

	raw, err := json.Marshal(txn)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4111111111111111")
	assert.NotContains(t, string(raw), "12345678901")
}

func TestProcessRecordGatewayFailure(t *testing.T) {
	cause := &api.GatewayError{Message: "gateway timeout"}
	f := newFixture(nil, cause)

	_, err := f.svc.ProcessRecord(context.Background(), paymentRequest())
	require.Error(t, err)
	assert.True(t, api.IsGatewayError(err))

	errTxn, ok := f.transactions.stored["txn-ord-1-err"]
	require.True(t, ok)
	assert.Equal(t, api.PaymentError, errTxn.PaymentStatus)
	assert.Equal(t, "****-****-****-1111", errTxn.CardData.CardNumber)

	update := lastUpdate(t, f.publisher)
	assert.Equal(t, api.OrderCancelled, update.Status)
	assert.Contains(t, update.Reason, "Payment processing error:")
	assert.Equal(t, "txn-ord-1-err", update.TransactionID)
}

func TestProcessRecordRedeliveryUsesStoredOutcome(t *testing.T) {
	f := newFixture(&processor.Result{Status: api.PaymentApproved, AuthCode: "AUTH-000002"}, nil)
	f.transactions.stored["txn-ord-1"] = &api.Transaction{
		ID:            "txn-ord-1",
		OrderID:       "ord-1",
		PaymentStatus: api.PaymentDeclined,
		FailureReason: "insufficient funds",
	}

	txn, err := f.svc.ProcessRecord(context.Background(), paymentRequest())
	require.NoError(t, err)

	// The stored decline wins over the fresh simulation.
	assert.Equal(t, api.PaymentDeclined, txn.PaymentStatus)
	update := lastUpdate(t, f.publisher)
	assert.Equal(t, api.OrderCancelled, update.Status)
	assert.Equal(t, "Payment declined: insufficient funds", update.Reason)
}

func TestProcessRecordValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(msg *api.ProcessTransaction)
	}{
		{"missing order id", func(msg *api.ProcessTransaction) { msg.OrderID = "" }},
		{"negative amount", func(msg *api.ProcessTransaction) { msg.OrderTotalValue = money.MustFromString("-1") }},
		{"missing card number", func(msg *api.ProcessTransaction) { msg.PaymentData.CardNumber = "" }},
		{"missing card holder", func(msg *api.ProcessTransaction) { msg.PaymentData.CardHolderName = "" }},
		{"missing expiry month", func(msg *api.ProcessTransaction) { msg.PaymentData.ExpiryMonth = "" }},
		{"missing expiry year", func(msg *api.ProcessTransaction) { msg.PaymentData.ExpiryYear = "" }},
		{"missing cvv", func(msg *api.ProcessTransaction) { msg.PaymentData.CVV = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&processor.Result{Status: api.PaymentApproved}, nil)
			msg := paymentRequest()
			tt.mutate(msg)

			txn, err := f.svc.ProcessRecord(context.Background(), msg)
			require.Error(t, err)
			assert.True(t, api.IsValidation(err))
			assert.Nil(t, txn)

			// The malformed request never reaches the gateway or the stores.
			assert.Zero(t, f.gateway.charges)
			assert.Empty(t, f.transactions.stored)
			assert.Empty(t, f.publisher.published)
		})
	}
}

func TestProcessRecordOrderMissing(t *testing.T) {
	f := newFixture(&processor.Result{Status: api.PaymentApproved}, nil)

	msg := paymentRequest()
	msg.OrderID = "ord-ghost"

	_, err := f.svc.ProcessRecord(context.Background(), msg)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Empty(t, f.transactions.stored)
	assert.Empty(t, f.publisher.published)
}

func TestProcessRecordSkipsSettledOrder(t *testing.T) {
	f := newFixture(&processor.Result{Status: api.PaymentApproved}, nil)
	f.orders.orders["ord-1"].Status = api.OrderCancelled

	txn, err := f.svc.ProcessRecord(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.Zero(t, f.gateway.charges)
	assert.Empty(t, f.publisher.published)
}
