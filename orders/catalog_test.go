package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/money"
)

type fakeCache struct {
	products map[string]*api.Product
	getErr   error
	setErr   error
	sets     int
}

func (f *fakeCache) Get(_ context.Context, productID string) (*api.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.products[productID], nil
}

func (f *fakeCache) Set(_ context.Context, product *api.Product) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.products[product.ID] = product
	return nil
}

func catalogProduct() *api.Product {
	return &api.Product{
		ID:       "prod-book",
		Name:     "Go Programming",
		Price:    money.MustFromString("19.99"),
		IsActive: true,
	}
}

func TestCachedCatalogHit(t *testing.T) {
	cache := &fakeCache{products: map[string]*api.Product{"prod-book": catalogProduct()}}
	store := &fakeCatalog{products: map[string]*api.Product{}}
	catalog := NewCachedCatalog(store, cache, zap.NewNop())

	product, err := catalog.Get(context.Background(), "prod-book")
	require.NoError(t, err)
	assert.Equal(t, "Go Programming", product.Name)
}

func TestCachedCatalogMissFillsCache(t *testing.T) {
	cache := &fakeCache{products: map[string]*api.Product{}}
	store := &fakeCatalog{products: map[string]*api.Product{"prod-book": catalogProduct()}}
	catalog := NewCachedCatalog(store, cache, zap.NewNop())

	product, err := catalog.Get(context.Background(), "prod-book")
	require.NoError(t, err)
	assert.Equal(t, "Go Programming", product.Name)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.products, "prod-book")
}

func TestCachedCatalogFailuresFallThrough(t *testing.T) {
	cache := &fakeCache{
		products: map[string]*api.Product{},
		getErr:   errors.New("redis get error"),
		setErr:   errors.New("redis set error"),
	}
	store := &fakeCatalog{products: map[string]*api.Product{"prod-book": catalogProduct()}}
	catalog := NewCachedCatalog(store, cache, zap.NewNop())

	product, err := catalog.Get(context.Background(), "prod-book")
	require.NoError(t, err)
	assert.Equal(t, "Go Programming", product.Name)
}

func TestCachedCatalogStoreMiss(t *testing.T) {
	cache := &fakeCache{products: map[string]*api.Product{}}
	store := &fakeCatalog{products: map[string]*api.Product{}}
	catalog := NewCachedCatalog(store, cache, zap.NewNop())

	_, err := catalog.Get(context.Background(), "prod-ghost")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Zero(t, cache.sets)
}
