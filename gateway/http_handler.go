package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/broker"
	"github.com/lucaslcw/order-pipeline/common/metrics"
)

type handler struct {
	publisher broker.Publisher
	orders    OrderReader
	logger    *zap.Logger
	metrics   *metrics.HTTPMetrics
}

func NewHandler(publisher broker.Publisher, orders OrderReader, logger *zap.Logger, m *metrics.HTTPMetrics) *handler {
	return &handler{
		publisher: publisher,
		orders:    orders,
		logger:    logger,
		metrics:   m,
	}
}

func (h *handler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.handleSubmitOrder)
	mux.HandleFunc("GET /orders/{orderID}", h.handleGetOrder)
}

// handleSubmitOrder validates and sanitizes the submission, assigns a
// time-ordered order id, publishes the initialize event and answers 202.
// Nothing is persisted on this path, so an error leaves no observable
// partial state.
func (h *handler) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, start, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validateAndSanitize(&req, time.Now()); err != nil {
		h.logger.Warn("order submission rejected", zap.Error(err))
		h.respondError(w, r, start, http.StatusBadRequest, err.Error())
		return
	}

	orderID := "ord-" + primitive.NewObjectID().Hex()

	event := api.InitializeOrder{
		OrderID:      orderID,
		CustomerData: req.CustomerData,
		PaymentData:  req.PaymentData,
		AddressData:  req.AddressData,
		Items:        req.Items,
	}

	err := h.publisher.Publish(r.Context(), broker.InitializeOrderExchange, "", event, map[string]any{
		"subject": api.InitializeOrderSubject,
		"orderId": orderID,
	})
	if err != nil {
		h.logger.Error("failed to publish initialize event",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.respondError(w, r, start, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("order submitted",
		zap.String("order_id", orderID),
		zap.Int("items_count", len(req.Items)),
	)

	h.respondJSON(w, r, start, http.StatusAccepted, map[string]string{
		"message": "Order received and is being processed",
		"orderId": orderID,
		"status":  "submitted",
	})
}

func (h *handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	orderID := r.PathValue("orderID")

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			h.respondError(w, r, start, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to load order",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.respondError(w, r, start, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondJSON(w, r, start, http.StatusOK, order)
}

func (h *handler) respondJSON(w http.ResponseWriter, r *http.Request, start time.Time, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	h.record(r, status, start)
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, start time.Time, status int, message string) {
	h.respondJSON(w, r, start, status, map[string]string{"error": message})
}

func (h *handler) record(r *http.Request, status int, start time.Time) {
	if h.metrics != nil {
		h.metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(status), time.Since(start))
	}
}
