package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	ruledom "storefront/internal/domain/upsellRule"
)

// ------------------------------------------------------------
// EvaluateCart
// ------------------------------------------------------------

func TestEvaluateCart_NoCartOrEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})

	res, err := f.upsellUC.EvaluateCart(ctx, guest, "")
	require.NoError(t, err)
	assert.Empty(t, res.Shops)
	assert.Zero(t, res.TotalRules)

	res, err = f.upsellUC.EvaluateCart(ctx, cartdom.Identity{}, "")
	require.NoError(t, err)
	assert.Empty(t, res.Shops)

	f.seedCart(t)
	res, err = f.upsellUC.EvaluateCart(ctx, guest, "")
	require.NoError(t, err)
	assert.Empty(t, res.Shops)
	assert.Empty(t, f.recorded())
}

func TestEvaluateCart_GroupsRanksAndPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lowUp := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"},
		withPriority(ruledom.PriorityLow))
	highUp := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountPercentage, 10, []string{"P2", "P4"},
		withPriority(ruledom.PriorityHigh))
	cross := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 50, []string{"P4"})
	coffee := f.createRule(t, "s2", ruledom.RuleTypeCrossSell, ruledom.DiscountPercentage, 20, []string{"P6"})

	f.seedCart(t, line("l1", "P1", "s1", 2, 200), line("l2", "P5", "s2", 1, 50))

	res, err := f.upsellUC.EvaluateCart(ctx, guest, "")
	require.NoError(t, err)

	require.Len(t, res.Shops, 2)
	assert.Equal(t, 4, res.TotalRules)

	tea := res.Shops["s1"]
	assert.Equal(t, "Tea House", tea.ShopName)
	require.Len(t, tea.Upsell, 2)
	assert.Equal(t, highUp.ID, tea.Upsell[0].RuleID)
	assert.Equal(t, lowUp.ID, tea.Upsell[1].RuleID)
	require.Len(t, tea.CrossSell, 1)
	assert.Equal(t, cross.ID, tea.CrossSell[0].RuleID)

	// P4: unit 80, own 10% -> base 72, rule flat 50 -> 22
	pot := tea.CrossSell[0].Products[0]
	assert.Equal(t, "P4", pot.ProductID)
	assert.Equal(t, 80.0, pot.UnitPrice)
	assert.Equal(t, 72.0, pot.BasePrice)
	assert.Equal(t, 22.0, pot.UpsellFinalPrice)
	assert.Equal(t, 50.0, pot.UpsellDiscount)
	assert.Equal(t, "flat", pot.DiscountType)

	// P2 under 10%: 250 -> 225
	assert.Equal(t, 225.0, tea.Upsell[0].Products[0].UpsellFinalPrice)

	coffeeShop := res.Shops["s2"]
	assert.Equal(t, "Coffee Corner", coffeeShop.ShopName)
	assert.Empty(t, coffeeShop.Upsell)
	require.Len(t, coffeeShop.CrossSell, 1)
	assert.Equal(t, coffee.ID, coffeeShop.CrossSell[0].RuleID)
	assert.Equal(t, 96.0, coffeeShop.CrossSell[0].Products[0].UpsellFinalPrice)

	assert.ElementsMatch(t, []string{lowUp.ID, highUp.ID, cross.ID, coffee.ID}, f.recorded())
}

func TestEvaluateCart_CartValueBounds(t *testing.T) {
	f := newFixture(t)

	tooHigh := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"},
		withConditions(ruledom.Conditions{MinCartValue: 5000}))
	unbounded := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"},
		withConditions(ruledom.Conditions{MinCartValue: 100}))
	capped := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"},
		withConditions(ruledom.Conditions{MaxCartValue: 500}))

	// total 1000
	f.seedCart(t, line("l1", "P1", "s1", 5, 200))

	res, err := f.upsellUC.EvaluateCart(context.Background(), guest, "")
	require.NoError(t, err)

	var ids []string
	for _, o := range res.Shops["s1"].Upsell {
		ids = append(ids, o.RuleID)
	}
	assert.Contains(t, ids, unbounded.ID)
	assert.NotContains(t, ids, tooHigh.ID)
	assert.NotContains(t, ids, capped.ID)
}

func TestEvaluateCart_TriggerProductScope(t *testing.T) {
	f := newFixture(t)

	anyProduct := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 10, []string{"P2"})
	onP1 := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 10, []string{"P2"},
		withConditions(ruledom.Conditions{TriggerProducts: []string{"P1"}}))
	onP3 := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 10, []string{"P2"},
		withConditions(ruledom.Conditions{TriggerProducts: []string{"P3"}}))

	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	res, err := f.upsellUC.EvaluateCart(context.Background(), guest, "P1")
	require.NoError(t, err)

	var ids []string
	for _, o := range res.Shops["s1"].Upsell {
		ids = append(ids, o.RuleID)
	}
	assert.ElementsMatch(t, []string{anyProduct.ID, onP1.ID}, ids)
	assert.NotContains(t, ids, onP3.ID)
}

func TestEvaluateCart_SkipsVanishedProducts(t *testing.T) {
	f := newFixture(t)

	partial := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 10, []string{"P2", "P3"})
	gone := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 10, []string{"P4"})
	f.catalog.RemoveProduct("P3")
	f.catalog.RemoveProduct("P4")

	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	res, err := f.upsellUC.EvaluateCart(context.Background(), guest, "")
	require.NoError(t, err)

	tea := res.Shops["s1"]
	require.Len(t, tea.Upsell, 1)
	assert.Equal(t, partial.ID, tea.Upsell[0].RuleID)
	require.Len(t, tea.Upsell[0].Products, 1)
	assert.Equal(t, "P2", tea.Upsell[0].Products[0].ProductID)
	assert.Empty(t, tea.CrossSell)
	assert.NotContains(t, f.recorded(), gone.ID)
}

func TestEvaluateCart_CatalogFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 10, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))
	f.catalog.ListErr = errors.New("catalog down")

	res, err := f.upsellUC.EvaluateCart(context.Background(), guest, "")
	require.NoError(t, err)
	assert.Empty(t, res.Shops)
	assert.Empty(t, f.recorded())
}

// ------------------------------------------------------------
// ApplyUpsell
// ------------------------------------------------------------

func TestApplyUpsell_ReplacesLineKeepingQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ruleA := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 2, 200), line("l2", "P3", "s1", 1, 100))

	c, err := f.upsellUC.ApplyUpsell(ctx, guest, ruleA.ID, "P2", "P1")
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	got := c.Items[0]
	assert.Equal(t, "l1", got.ID)
	assert.Equal(t, "P2", got.ProductID)
	assert.Equal(t, "s1", got.ShopID)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, 200.0, got.PriceAtAddition)
	require.NotNil(t, got.UpsellRuleApplied)
	assert.Equal(t, "P1", got.UpsellRuleApplied.OriginalProductID)
	assert.Equal(t, ruleA.ID, got.UpsellRuleApplied.RuleID)
	assert.Equal(t, "flat", got.UpsellRuleApplied.DiscountType)
	assert.Nil(t, got.CrossSellRuleApplied)
	assert.Equal(t, -1, c.IndexOfProduct("P1"))

	// persisted, total left for the caller
	stored := f.cart(t)
	assert.Equal(t, "P2", stored.Items[0].ProductID)
	assert.Equal(t, 500.0, stored.TotalAmount)

	stats := f.rule(t, ruleA.ID).Stats
	assert.Equal(t, int64(1), stats.Conversions)
	assert.Equal(t, 400.0, stats.Revenue)
}

func TestApplyUpsell_FallsBackToLineID(t *testing.T) {
	f := newFixture(t)
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 3, 200))

	c, err := f.upsellUC.ApplyUpsell(context.Background(), guest, r.ID, "P2", "l1")
	require.NoError(t, err)
	assert.Equal(t, "P2", c.Items[0].ProductID)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "P1", c.Items[0].UpsellRuleApplied.OriginalProductID)
}

func TestApplyUpsell_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	up := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	cross := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 50, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	_, err := f.upsellUC.ApplyUpsell(ctx, cartdom.Identity{}, up.ID, "P2", "P1")
	assert.ErrorIs(t, err, usecase.ErrIdentityRequired)

	_, err = f.upsellUC.ApplyUpsell(ctx, guest, "missing", "P2", "P1")
	assert.ErrorIs(t, err, ruledom.ErrNotFound)

	_, err = f.upsellUC.ApplyUpsell(ctx, guest, cross.ID, "P2", "P1")
	assert.ErrorIs(t, err, ruledom.ErrInvalidRuleType)

	_, err = f.upsellUC.ApplyUpsell(ctx, guest, up.ID, "P3", "P1")
	assert.ErrorIs(t, err, ruledom.ErrProductNotOffered)

	_, err = f.upsellUC.ApplyUpsell(ctx, guest, up.ID, "P2", "P9")
	require.ErrorIs(t, err, cartdom.ErrItemNotFound)
	var nf *cartdom.ItemNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "P9", nf.SearchedID)
	assert.Equal(t, []string{"P1", "l1"}, nf.Candidates)

	_, err = f.upsellUC.ApplyUpsell(ctx, cartdom.Identity{SessionID: "other"}, up.ID, "P2", "P1")
	assert.ErrorIs(t, err, cartdom.ErrNotFound)

	assert.Zero(t, f.rule(t, up.ID).Stats.Conversions)
}

func TestApplyUpsell_InactiveAfterEvaluation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	res, err := f.upsellUC.EvaluateCart(ctx, guest, "")
	require.NoError(t, err)
	require.Len(t, res.Shops["s1"].Upsell, 1)

	_, err = f.ruleUC.Toggle(ctx, "s1", r.ID)
	require.NoError(t, err)

	_, err = f.upsellUC.ApplyUpsell(ctx, guest, r.ID, "P2", "P1")
	assert.ErrorIs(t, err, ruledom.ErrInactive)
	assert.ErrorIs(t, err, ruledom.ErrNotFound)
}

func TestApplyUpsell_CartWriteFailurePropagates(t *testing.T) {
	f := newFixture(t)
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))
	boom := errors.New("disk full")
	f.carts.SaveErr = boom

	_, err := f.upsellUC.ApplyUpsell(context.Background(), guest, r.ID, "P2", "P1")
	assert.ErrorIs(t, err, boom)
}

// ------------------------------------------------------------
// ApplyCrossSell
// ------------------------------------------------------------

func TestApplyCrossSell_AppendsThenIncrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ruleB := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountPercentage, 10, []string{"P3"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	c, err := f.upsellUC.ApplyCrossSell(ctx, guest, ruleB.ID, "P3")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	added := c.Items[1]
	assert.Equal(t, "P3", added.ProductID)
	assert.Equal(t, 1, added.Quantity)
	assert.Equal(t, 90.0, added.PriceAtAddition)
	assert.NotEmpty(t, added.ID)
	require.NotNil(t, added.CrossSellRuleApplied)
	assert.Empty(t, added.CrossSellRuleApplied.OriginalProductID)
	firstApplied := added.CrossSellRuleApplied.AppliedAt

	f.clock.Advance(time.Minute)
	c, err = f.upsellUC.ApplyCrossSell(ctx, guest, ruleB.ID, "P3")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	again := c.Items[1]
	assert.Equal(t, 2, again.Quantity)
	assert.Equal(t, 90.0, again.PriceAtAddition)
	assert.True(t, again.CrossSellRuleApplied.AppliedAt.After(firstApplied))

	stats := f.rule(t, ruleB.ID).Stats
	assert.Equal(t, int64(2), stats.Conversions)
	// 90*1 + 90*2
	assert.Equal(t, 270.0, stats.Revenue)
}

func TestApplyCrossSell_OnUpsoldLineClearsUpsellSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	up := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	cross := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 10, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	_, err := f.upsellUC.ApplyUpsell(ctx, guest, up.ID, "P2", "P1")
	require.NoError(t, err)

	c, err := f.upsellUC.ApplyCrossSell(ctx, guest, cross.ID, "P2")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Nil(t, c.Items[0].UpsellRuleApplied)
	assert.NotNil(t, c.Items[0].CrossSellRuleApplied)
}

func TestApplyCrossSell_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	up := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	cross := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 10, []string{"P3"})
	f.seedCart(t, line("l1", "P1", "s1", 1, 200))

	_, err := f.upsellUC.ApplyCrossSell(ctx, guest, up.ID, "P2")
	assert.ErrorIs(t, err, ruledom.ErrInvalidRuleType)

	_, err = f.upsellUC.ApplyCrossSell(ctx, guest, cross.ID, "P2")
	assert.ErrorIs(t, err, ruledom.ErrProductNotOffered)

	_, err = f.upsellUC.ApplyCrossSell(ctx, cartdom.Identity{}, cross.ID, "P3")
	assert.ErrorIs(t, err, usecase.ErrIdentityRequired)
}

// ------------------------------------------------------------
// RemoveAppliedRule
// ------------------------------------------------------------

func TestRemoveAppliedRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	up := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	f.seedCart(t, line("l1", "P1", "s1", 2, 200), line("l2", "P3", "s1", 1, 100))

	_, err := f.upsellUC.ApplyUpsell(ctx, guest, up.ID, "P2", "P1")
	require.NoError(t, err)

	c, err := f.upsellUC.RemoveAppliedRule(ctx, guest, "P2")
	require.NoError(t, err)
	assert.Nil(t, c.Items[0].UpsellRuleApplied)
	assert.Equal(t, "P2", c.Items[0].ProductID)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 200.0, c.Items[0].PriceAtAddition)
	assert.Nil(t, f.cart(t).Items[0].UpsellRuleApplied)

	// product present without a rule: no-op success
	_, err = f.upsellUC.RemoveAppliedRule(ctx, guest, "P3")
	require.NoError(t, err)

	_, err = f.upsellUC.RemoveAppliedRule(ctx, guest, "P9")
	assert.ErrorIs(t, err, cartdom.ErrItemNotFound)
}
