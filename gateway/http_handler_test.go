package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/broker"
)

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

type fakeOrderReader struct {
	orders map[string]*api.Order
	err    error
}

func (r *fakeOrderReader) Get(_ context.Context, orderID string) (*api.Order, error) {
	if r.err != nil {
		return nil, r.err
	}
	order, ok := r.orders[orderID]
	if !ok {
		return nil, api.ErrNotFound
	}
	return order, nil
}

func newTestServer(pub *fakePublisher, reader *fakeOrderReader) *httptest.Server {
	h := NewHandler(pub, reader, zap.NewNop(), nil)
	mux := http.NewServeMux()
	h.registerRoutes(mux)
	return httptest.NewServer(mux)
}

func postOrder(t *testing.T, url string, req OrderRequest) *http.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	resp, err := http.Post(url+"/orders", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSubmitOrderAccepted(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(pub, &fakeOrderReader{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, validRequest())
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "submitted", body["status"])
	assert.True(t, strings.HasPrefix(body["orderId"], "ord-"))

	require.Len(t, pub.published, 1)
	p := pub.published[0]
	assert.Equal(t, broker.InitializeOrderExchange, p.exchange)
	assert.Equal(t, "", p.routingKey)
	assert.Equal(t, api.InitializeOrderSubject, p.attributes["subject"])
	assert.Equal(t, body["orderId"], p.attributes["orderId"])

	event, ok := p.msg.(api.InitializeOrder)
	require.True(t, ok)
	assert.Equal(t, body["orderId"], event.OrderID)
	assert.Equal(t, "ana.silva@example.com", event.CustomerData.Email)
}

func TestSubmitOrderValidationFailure(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(pub, &fakeOrderReader{})
	defer srv.Close()

	req := validRequest()
	req.Items[0].Quantity = -1

	resp := postOrder(t, srv.URL, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "items[0].quantity must be a positive integer", body["error"])
	assert.Empty(t, pub.published)
}

func TestSubmitOrderMalformedBody(t *testing.T) {
	pub := &fakePublisher{}
	srv := newTestServer(pub, &fakeOrderReader{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orders", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Invalid request body", body["error"])
	assert.Empty(t, pub.published)
}

func TestSubmitOrderPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	srv := newTestServer(pub, &fakeOrderReader{})
	defer srv.Close()

	resp := postOrder(t, srv.URL, validRequest())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestGetOrder(t *testing.T) {
	reader := &fakeOrderReader{orders: map[string]*api.Order{
		"ord-1": {ID: "ord-1", Status: api.OrderPending},
	}}
	srv := newTestServer(&fakePublisher{}, reader)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders/ord-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var order api.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, api.OrderPending, order.Status)
}

func TestGetOrderNotFound(t *testing.T) {
	srv := newTestServer(&fakePublisher{}, &fakeOrderReader{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/orders/ord-missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Order not found", body["error"])
}
