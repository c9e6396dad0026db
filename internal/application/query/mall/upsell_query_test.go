package mall_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/adapters/out/cache"
	"storefront/internal/adapters/out/memory"
	"storefront/internal/application/query/mall"
	"storefront/internal/application/usecase"
	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type iconPrefix string

func (p iconPrefix) ResolveIconURL(_ context.Context, raw string) string { return string(p) + raw }

func seed(t *testing.T, repo ruledom.Repository, id string, prio ruledom.Priority, offered []string, at time.Time) ruledom.Rule {
	t.Helper()
	r, err := ruledom.New(id, "s1", ruledom.Fields{
		RuleName:        id,
		RuleType:        ruledom.RuleTypeCrossSell,
		Priority:        prio,
		DiscountType:    ruledom.DiscountPercentage,
		DiscountValue:   10,
		OfferedProducts: offered,
	}, at)
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), r)
	require.NoError(t, err)
	return created
}

func newQuery(t *testing.T) (*mall.UpsellPublicQuery, *memory.UpsellRuleRepositoryMem, *memory.CatalogMem) {
	t.Helper()
	rules := memory.NewUpsellRuleRepositoryMem()
	catalog := memory.NewCatalogMem()
	catalog.PutProduct(
		productdom.Product{ID: "P1", ShopID: "s1", Name: "Sencha", UnitPrice: 200, IconURL: "icons/p1.png"},
		productdom.Product{ID: "P2", ShopID: "s1", Name: "Gyokuro", UnitPrice: 250, DiscountType: "flat", DiscountValue: 50},
	)
	q := mall.NewUpsellPublicQuery(rules, catalog, cache.NewMemoryCache(), time.Minute, iconPrefix("https://cdn/"), nil)
	return q, rules, catalog
}

func TestListPublic_ActiveOnlyByPriority(t *testing.T) {
	q, rules, _ := newQuery(t)
	ctx := context.Background()

	seed(t, rules, "low", ruledom.PriorityLow, []string{"P1"}, t0)
	seed(t, rules, "high", ruledom.PriorityHigh, []string{"P2"}, t0.Add(time.Second))
	off := seed(t, rules, "off", ruledom.PriorityHigh, []string{"P1"}, t0.Add(2*time.Second))
	off.IsActive = false
	_, err := rules.Save(ctx, off)
	require.NoError(t, err)

	got, err := q.ListPublic(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].RuleID)
	assert.Equal(t, "low", got[1].RuleID)

	// P2: 250 - 50 own discount = 200, then 10% = 180
	p2 := got[0].Products[0]
	assert.Equal(t, 200.0, p2.BasePrice)
	assert.Equal(t, 180.0, p2.UpsellFinalPrice)
	assert.Equal(t, 20.0, p2.UpsellDiscount)
	assert.Equal(t, "https://cdn/icons/p1.png", got[1].Products[0].IconURL)
}

func TestListPublic_CachedUntilInvalidated(t *testing.T) {
	q, rules, _ := newQuery(t)
	ctx := context.Background()

	seed(t, rules, "r1", ruledom.PriorityMedium, []string{"P1"}, t0)
	got, err := q.ListPublic(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	seed(t, rules, "r2", ruledom.PriorityMedium, []string{"P2"}, t0)
	got, err = q.ListPublic(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 1, "served from cache")

	require.NoError(t, q.Cache.DeletePattern(ctx, usecase.PublicRuleCachePattern("s1")))
	got, err = q.ListPublic(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListPublic_RequiresShop(t *testing.T) {
	q, _, _ := newQuery(t)
	_, err := q.ListPublic(context.Background(), " ")
	assert.ErrorIs(t, err, usecase.ErrUpsellInvalidArgument)
	assert.ErrorIs(t, err, mall.ErrShopRequired)
}

func TestGetPublic(t *testing.T) {
	q, rules, catalog := newQuery(t)
	ctx := context.Background()

	seed(t, rules, "r1", ruledom.PriorityMedium, []string{"P1"}, t0)
	off := seed(t, rules, "off", ruledom.PriorityMedium, []string{"P1"}, t0)
	off.IsActive = false
	_, err := rules.Save(ctx, off)
	require.NoError(t, err)
	seed(t, rules, "gone", ruledom.PriorityMedium, []string{"P2"}, t0)

	got, err := q.GetPublic(ctx, "", "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RuleID)
	assert.Equal(t, 180.0, got.Products[0].UpsellFinalPrice)

	_, err = q.GetPublic(ctx, "s1", "r1")
	require.NoError(t, err)

	for _, tc := range []struct{ shop, id string }{
		{"", "missing"},
		{"", "off"},
		{"s2", "r1"},
	} {
		_, err := q.GetPublic(ctx, tc.shop, tc.id)
		assert.True(t, errors.Is(err, mall.ErrNotFound), "%s/%s: %v", tc.shop, tc.id, err)
	}

	catalog.RemoveProduct("P2")
	_, err = q.GetPublic(ctx, "", "gone")
	assert.ErrorIs(t, err, mall.ErrNotFound)

	_, err = q.GetPublic(ctx, "", "")
	assert.ErrorIs(t, err, usecase.ErrUpsellInvalidArgument)
}
