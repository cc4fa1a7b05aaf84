package main

import (
	"context"
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
		ServiceName:     config.GetEnv("SERVICE_NAME", "orders"),
		MetricsAddr:     config.GetEnv("METRICS_ADDR", "localhost:9102"),
		AMQPUser:        config.GetEnv("AMQP_USER", "guest"),
		AMQPPass:        config.GetEnv("AMQP_PASS", "guest"),
		AMQPHost:        config.GetEnv("AMQP_HOST", "localhost"),
		AMQPPort:        config.GetEnv("AMQP_PORT", "5672"),
		MongoURI:        config.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		RedisAddr:       config.GetEnv("REDIS_ADDR", "localhost:6379"),
		CatalogCacheTTL: config.GetEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
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

	sc := storage.DefaultConfig()
	sc.Database = config.GetEnv("MONGO_DATABASE", sc.Database)
	sc.LeadCollection = config.GetEnv("LEAD_COLLECTION_TABLE", sc.LeadCollection)
	sc.OrderCollection = config.GetEnv("ORDER_COLLECTION_TABLE", sc.OrderCollection)
	sc.ProductCollection = config.GetEnv("PRODUCT_COLLECTION_TABLE", sc.ProductCollection)
	stores := storage.NewStores(mongoClient, sc)

	if err := stores.EnsureIndexes(context.Background()); err != nil {
		log.Fatal("failed to ensure indexes", zap.Error(err))
	}

	cache, err := NewProductCache(cfg.RedisAddr, cfg.CatalogCacheTTL)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer cache.Close()

	ch, closeBroker, err := broker.Connect(cfg.AMQPUser, cfg.AMQPPass, cfg.AMQPHost, cfg.AMQPPort)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer closeBroker()

	business := metrics.NewBusinessMetrics(cfg.ServiceName, prometheus.DefaultRegisterer)
	worker := metrics.NewWorkerMetrics(cfg.ServiceName, prometheus.DefaultRegisterer)
	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	catalog := NewCachedCatalog(stores.Products, cache, log)
	svc := NewService(catalog, stores.Stock, stores.Leads, stores.Orders, broker.NewPublisher(ch), log)
	consumer := newConsumer(ch, svc, business, worker, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	if err := consumer.Listen(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
