package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront/internal/adapters/out/cache"
	"storefront/internal/adapters/out/memory"
	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
	ruledom "storefront/internal/domain/upsellRule"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	clock   *fixedClock
	rules   *memory.UpsellRuleRepositoryMem
	carts   *memory.CartRepositoryMem
	catalog *memory.CatalogMem
	cache   *cache.MemoryCache

	ruleUC   *usecase.UpsellRuleUsecase
	upsellUC *usecase.CartUpsellUsecase
	cartUC   *usecase.CartUsecase

	mu          sync.Mutex
	impressions []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:   &fixedClock{t: t0},
		rules:   memory.NewUpsellRuleRepositoryMem(),
		carts:   memory.NewCartRepositoryMem(),
		catalog: memory.NewCatalogMem(),
		cache:   cache.NewMemoryCache(),
	}

	f.catalog.PutShop(
		shopdom.Shop{ID: "s1", Name: "Tea House", OwnerID: "owner-1"},
		shopdom.Shop{ID: "s2", Name: "Coffee Corner", OwnerID: "owner-2"},
	)
	f.catalog.PutProduct(
		productdom.Product{ID: "P1", ShopID: "s1", Name: "Sencha", UnitPrice: 200},
		productdom.Product{ID: "P2", ShopID: "s1", Name: "Gyokuro", UnitPrice: 250},
		productdom.Product{ID: "P3", ShopID: "s1", Name: "Tea cup", UnitPrice: 100},
		productdom.Product{ID: "P4", ShopID: "s1", Name: "Tea pot", UnitPrice: 80, DiscountType: "percentage", DiscountValue: 10},
		productdom.Product{ID: "P5", ShopID: "s2", Name: "Espresso", UnitPrice: 50},
		productdom.Product{ID: "P6", ShopID: "s2", Name: "Grinder", UnitPrice: 120},
	)

	f.ruleUC = usecase.NewUpsellRuleUsecase(f.rules, f.catalog, f.cache, time.Minute, nil).WithClock(f.clock)
	f.upsellUC = usecase.NewCartUpsellUsecase(usecase.CartUpsellDeps{
		Rules:   f.rules,
		Carts:   f.carts,
		Catalog: f.catalog,
		Shops:   f.catalog.Shops(),
		Impressions: usecase.ImpressionSinkFunc(func(ids []string) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.impressions = append(f.impressions, ids...)
		}),
		Clock: f.clock,
	})
	f.cartUC = usecase.NewCartUsecaseWithClock(f.carts, f.catalog, f.clock)
	return f
}

func (f *fixture) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.impressions...)
}

var guest = cartdom.Identity{SessionID: "sess-1"}

func (f *fixture) seedCart(t *testing.T, items ...cartdom.CartItem) *cartdom.Cart {
	t.Helper()
	c, err := cartdom.NewCart("c1", "", guest.SessionID, items, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.carts.Save(context.Background(), c))
	return c
}

func (f *fixture) cart(t *testing.T) *cartdom.Cart {
	t.Helper()
	c, err := f.carts.GetByIdentity(context.Background(), guest)
	require.NoError(t, err)
	return c
}

func (f *fixture) rule(t *testing.T, id string) ruledom.Rule {
	t.Helper()
	r, err := f.rules.GetByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

type ruleOpt func(*ruledom.Fields)

func withConditions(c ruledom.Conditions) ruleOpt {
	return func(f *ruledom.Fields) { f.Conditions = c }
}

func withPriority(p ruledom.Priority) ruleOpt {
	return func(f *ruledom.Fields) { f.Priority = p }
}

func withName(n string) ruleOpt {
	return func(f *ruledom.Fields) { f.RuleName = n }
}

func (f *fixture) createRule(
	t *testing.T,
	shopID string,
	typ ruledom.RuleType,
	dt ruledom.DiscountType,
	dv float64,
	offered []string,
	opts ...ruleOpt,
) ruledom.Rule {
	t.Helper()
	fields := ruledom.Fields{
		RuleName:        string(typ) + " rule",
		RuleType:        typ,
		Priority:        ruledom.PriorityMedium,
		DiscountType:    dt,
		DiscountValue:   dv,
		OfferedProducts: offered,
	}
	for _, o := range opts {
		o(&fields)
	}
	r, err := f.ruleUC.Create(context.Background(), shopID, fields)
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return r
}

func line(id, product, shop string, qty int, price float64) cartdom.CartItem {
	return cartdom.CartItem{ID: id, ProductID: product, ShopID: shop, Quantity: qty, PriceAtAddition: price}
}
