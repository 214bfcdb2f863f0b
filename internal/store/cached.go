package store

import (
	"context"

	"github.com/prompt-general/cscx/internal/cache"
	"github.com/prompt-general/cscx/pkg/models"
)

const (
	customersCacheKey = "customers:all"
	catalogCacheKey   = "products:catalog"
)

// Cached serves the slow-changing reads (customer list, product catalog) from a
// layered cache and passes every other read through to the store.
type Cached struct {
	*SQLStore
	cache *cache.Layered
}

// NewCached wraps a store with a read-through cache
func NewCached(store *SQLStore, layered *cache.Layered) *Cached {
	return &Cached{SQLStore: store, cache: layered}
}

func (c *Cached) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return cache.GetOrLoad(ctx, c.cache, customersCacheKey, c.SQLStore.ListCustomers)
}

func (c *Cached) FetchProductCatalog(ctx context.Context) ([]models.Product, error) {
	return cache.GetOrLoad(ctx, c.cache, catalogCacheKey, c.SQLStore.FetchProductCatalog)
}

// Import writes through to the store and drops the cached lists
func (c *Cached) Import(ctx context.Context, ds Dataset) error {
	if err := c.SQLStore.Import(ctx, ds); err != nil {
		return err
	}
	c.cache.Invalidate(ctx, customersCacheKey)
	c.cache.Invalidate(ctx, catalogCacheKey)
	return nil
}
