package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
)

// ProductCache is a Redis cache for catalog entries. The catalog is
// read-only from the pipeline's perspective, so a short TTL is the only
// invalidation needed.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(addr string, ttl time.Duration) (*ProductCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ProductCache{client: client, ttl: ttl}, nil
}

func (c *ProductCache) Close() error {
	return c.client.Close()
}

// Get returns the cached product, or (nil, nil) on a miss.
func (c *ProductCache) Get(ctx context.Context, productID string) (*api.Product, error) {
	data, err := c.client.Get(ctx, "product:"+productID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var product api.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached product: %w", err)
	}
	return &product, nil
}

func (c *ProductCache) Set(ctx context.Context, product *api.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	if err := c.client.Set(ctx, "product:"+product.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// productCache is the cache surface CachedCatalog reads through.
type productCache interface {
	Get(ctx context.Context, productID string) (*api.Product, error)
	Set(ctx context.Context, product *api.Product) error
}

// CachedCatalog is a cache-aside wrapper over the product store. Cache
// failures fall through to the store; cache writes are best-effort.
type CachedCatalog struct {
	store  Catalog
	cache  productCache
	logger *zap.Logger
}

func NewCachedCatalog(store Catalog, cache productCache, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func (c *CachedCatalog) Get(ctx context.Context, productID string) (*api.Product, error) {
	cached, err := c.cache.Get(ctx, productID)
	if err != nil {
		c.logger.Warn("catalog cache read failed", zap.String("product_id", productID), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	product, err := c.store.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, product); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("product_id", productID), zap.Error(err))
	}

	return product, nil
}
