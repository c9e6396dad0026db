// internal/adapters/out/memory/catalog_mem.go
package memory

import (
	"context"
	"sync"

	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
)

// CatalogMem serves products and shops from memory.
type CatalogMem struct {
	mu       sync.RWMutex
	products map[string]productdom.Product
	shops    map[string]shopdom.Shop

	// ListErr, when set, is returned by product lookups (failure injection in tests).
	ListErr error
}

func NewCatalogMem() *CatalogMem {
	return &CatalogMem{
		products: map[string]productdom.Product{},
		shops:    map[string]shopdom.Shop{},
	}
}

var (
	_ productdom.Catalog = (*CatalogMem)(nil)
	_ shopdom.Repository = (*ShopRepositoryMem)(nil)
)

func (c *CatalogMem) PutProduct(ps ...productdom.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range ps {
		c.products[p.ID] = p
	}
}

func (c *CatalogMem) PutShop(ss ...shopdom.Shop) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss {
		c.shops[s.ID] = s
	}
}

func (c *CatalogMem) RemoveProduct(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *CatalogMem) ListByIDs(_ context.Context, shopID string, ids []string) ([]productdom.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ListErr != nil {
		return nil, c.ListErr
	}
	out := make([]productdom.Product, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := c.products[id]; ok && p.ShopID == shopID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ShopRepositoryMem is the shop read port over the same catalog data.
type ShopRepositoryMem struct {
	c *CatalogMem
}

// Shops returns the shop view of the catalog.
func (c *CatalogMem) Shops() *ShopRepositoryMem {
	return &ShopRepositoryMem{c: c}
}

func (r *ShopRepositoryMem) ListByIDs(_ context.Context, ids []string) ([]shopdom.Shop, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	out := make([]shopdom.Shop, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.c.shops[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *ShopRepositoryMem) GetByOwnerID(_ context.Context, ownerID string) (shopdom.Shop, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()

	for _, s := range r.c.shops {
		if s.OwnerID == ownerID {
			return s, nil
		}
	}
	return shopdom.Shop{}, shopdom.ErrNotFound
}
