package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks queue-consumer throughput per worker process.
type WorkerMetrics struct {
	MessagesProcessed *prometheus.CounterVec
	ProcessingTime    *prometheus.HistogramVec
}

// BusinessMetrics tracks pipeline outcomes across workers.
type BusinessMetrics struct {
	OrdersCreated   prometheus.Counter
	LeadsCreated    prometheus.Counter
	StockEntries    *prometheus.CounterVec
	Payments        *prometheus.CounterVec
	OrderUpdates    *prometheus.CounterVec
	GatewayDuration prometheus.Histogram
}

// HTTPMetrics tracks the ingress HTTP surface.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewWorkerMetrics creates consumer metrics for a service. The registerer is
// explicit so tests can use a private registry.
func NewWorkerMetrics(serviceName string, reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		MessagesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_messages_processed_total",
				Help: "Total number of queue messages processed",
			},
			[]string{"queue", "outcome"},
		),
		ProcessingTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    serviceName + "_message_processing_seconds",
				Help:    "Queue message processing duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
	}
}

// NewBusinessMetrics creates pipeline-outcome metrics for a service.
func NewBusinessMetrics(serviceName string, reg prometheus.Registerer) *BusinessMetrics {
	factory := promauto.With(reg)
	return &BusinessMetrics{
		OrdersCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_orders_created_total",
				Help: "Total number of orders created",
			},
		),
		LeadsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_leads_created_total",
				Help: "Total number of leads created",
			},
		),
		StockEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_stock_entries_total",
				Help: "Total number of stock ledger entries appended",
			},
			[]string{"operation"},
		),
		Payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_payments_total",
				Help: "Total number of payment attempts by outcome",
			},
			[]string{"status"},
		),
		OrderUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_order_updates_total",
				Help: "Total number of order status transitions applied",
			},
			[]string{"status"},
		),
		GatewayDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    serviceName + "_gateway_duration_seconds",
				Help:    "Payment gateway call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// NewHTTPMetrics creates HTTP metrics for the gateway.
func NewHTTPMetrics(serviceName string, reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    serviceName + "_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordMessage records one processed queue message.
func (m *WorkerMetrics) RecordMessage(queue, outcome string, duration time.Duration) {
	m.MessagesProcessed.WithLabelValues(queue, outcome).Inc()
	m.ProcessingTime.WithLabelValues(queue).Observe(duration.Seconds())
}

// RecordHTTPRequest records one ingress request.
func (m *HTTPMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Serve exposes /metrics and /healthz on addr. It blocks, so callers run it
// in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return http.ListenAndServe(addr, mux)
}
