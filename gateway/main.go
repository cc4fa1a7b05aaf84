package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/broker"
	"github.com/lucaslcw/order-pipeline/common/config"
	"github.com/lucaslcw/order-pipeline/common/logger"
	"github.com/lucaslcw/order-pipeline/common/metrics"
	"github.com/lucaslcw/order-pipeline/common/storage"
	"github.com/lucaslcw/order-pipeline/common/tracing"
)

func main() {
	cfg := Config{
		ServiceName: config.GetEnv("SERVICE_NAME", "gateway"),
		HTTPAddr:    config.GetEnv("HTTP_ADDR", "localhost:8080"),
		MetricsAddr: config.GetEnv("METRICS_ADDR", "localhost:9100"),
		AMQPUser:    config.GetEnv("AMQP_USER", "guest"),
		AMQPPass:    config.GetEnv("AMQP_PASS", "guest"),
		AMQPHost:    config.GetEnv("AMQP_HOST", "localhost"),
		AMQPPort:    config.GetEnv("AMQP_PORT", "5672"),
		MongoURI:    config.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
	}

	log := logger.New(cfg.ServiceName)
	defer log.Sync()

	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName)
	if err != nil {
		log.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer shutdownTracer()

	mongoClient, err := storage.Connect(context.Background(), cfg.MongoURI)
	if err != nil {
		log.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Error("failed to disconnect from mongodb", zap.Error(err))
		}
	}()

	stores := storage.NewStores(mongoClient, storeConfig())

	ch, closeBroker, err := broker.Connect(cfg.AMQPUser, cfg.AMQPPass, cfg.AMQPHost, cfg.AMQPPort)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer closeBroker()

	httpMetrics := metrics.NewHTTPMetrics(cfg.ServiceName, prometheus.DefaultRegisterer)
	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	h := NewHandler(broker.NewPublisher(ch), stores.Orders, log, httpMetrics)
	mux := http.NewServeMux()
	h.registerRoutes(mux)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("error during shutdown", zap.Error(err))
		}
	}()

	log.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func storeConfig() storage.Config {
	sc := storage.DefaultConfig()
	sc.Database = config.GetEnv("MONGO_DATABASE", sc.Database)
	sc.OrderCollection = config.GetEnv("ORDER_COLLECTION_TABLE", sc.OrderCollection)
	return sc
}
