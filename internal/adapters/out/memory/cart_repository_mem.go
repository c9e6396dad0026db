// internal/adapters/out/memory/cart_repository_mem.go
package memory

import (
	"context"
	"errors"
	"sync"

	cartdom "storefront/internal/domain/cart"
)

var ErrConflict = errors.New("memory: conflict")

// CartRepositoryMem keeps carts keyed by id.
type CartRepositoryMem struct {
	mu    sync.RWMutex
	carts map[string]*cartdom.Cart

	// SaveErr, when set, is returned by Save (failure injection in tests).
	SaveErr error
}

func NewCartRepositoryMem() *CartRepositoryMem {
	return &CartRepositoryMem{carts: map[string]*cartdom.Cart{}}
}

var _ cartdom.Repository = (*CartRepositoryMem)(nil)

func (r *CartRepositoryMem) GetByIdentity(_ context.Context, id cartdom.Identity) (*cartdom.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.carts {
		if id.Matches(c) {
			return cloneCart(c), nil
		}
	}
	return nil, cartdom.ErrNotFound
}

func (r *CartRepositoryMem) Save(_ context.Context, c *cartdom.Cart) error {
	if c == nil || c.ID == "" {
		return cartdom.ErrInvalidCart
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.carts[c.ID] = cloneCart(c)
	return nil
}

func cloneCart(c *cartdom.Cart) *cartdom.Cart {
	cp := *c
	cp.Items = make([]cartdom.CartItem, len(c.Items))
	for i, it := range c.Items {
		if it.UpsellRuleApplied != nil {
			a := *it.UpsellRuleApplied
			it.UpsellRuleApplied = &a
		}
		if it.CrossSellRuleApplied != nil {
			a := *it.CrossSellRuleApplied
			it.CrossSellRuleApplied = &a
		}
		cp.Items[i] = it
	}
	return &cp
}
