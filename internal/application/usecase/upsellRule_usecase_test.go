package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/application/usecase"
	ruledom "storefront/internal/domain/upsellRule"
)

func TestUpsellRuleUsecase_CreateDefaultsActive(t *testing.T) {
	f := newFixture(t)

	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "s1", r.ShopID)
	assert.True(t, r.IsActive)
	assert.Equal(t, ruledom.Stats{}, r.Stats)

	stored := f.rule(t, r.ID)
	assert.Equal(t, r.OfferedProducts, stored.OfferedProducts)
}

func TestUpsellRuleUsecase_CreateRejectsForeignProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := ruledom.Fields{
		RuleName:      "bad",
		RuleType:      ruledom.RuleTypeCrossSell,
		DiscountType:  ruledom.DiscountFlat,
		DiscountValue: 5,
	}

	foreignOffer := base
	foreignOffer.OfferedProducts = []string{"P2", "P5"}
	_, err := f.ruleUC.Create(ctx, "s1", foreignOffer)
	assert.ErrorIs(t, err, ruledom.ErrProductNotOwned)
	assert.Contains(t, err.Error(), "P5")

	unknown := base
	unknown.OfferedProducts = []string{"P404"}
	_, err = f.ruleUC.Create(ctx, "s1", unknown)
	assert.ErrorIs(t, err, ruledom.ErrProductNotOwned)

	foreignTrigger := base
	foreignTrigger.OfferedProducts = []string{"P2"}
	foreignTrigger.Conditions = ruledom.Conditions{TriggerProducts: []string{"P6"}}
	_, err = f.ruleUC.Create(ctx, "s1", foreignTrigger)
	assert.ErrorIs(t, err, ruledom.ErrProductNotOwned)

	rules, err := f.rules.List(ctx, ruledom.Filter{})
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestUpsellRuleUsecase_CreateValidatesFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.ruleUC.Create(context.Background(), "s1", ruledom.Fields{
		RuleName:        "x",
		RuleType:        "bundle",
		DiscountType:    ruledom.DiscountFlat,
		OfferedProducts: []string{"P2"},
	})
	assert.ErrorIs(t, err, ruledom.ErrInvalidRuleType)

	_, err = f.ruleUC.Create(context.Background(), " ", ruledom.Fields{})
	assert.ErrorIs(t, err, usecase.ErrUpsellInvalidArgument)
}

func TestUpsellRuleUsecase_UpdateShallowMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"},
		withConditions(ruledom.Conditions{MinCartValue: 100, TriggerProducts: []string{"P1"}}))

	value := 25.0
	cond := ruledom.Conditions{MaxCartValue: 900}
	updated, err := f.ruleUC.Update(ctx, "s1", r.ID, ruledom.Patch{DiscountValue: &value, Conditions: &cond})
	require.NoError(t, err)

	assert.Equal(t, 25.0, updated.DiscountValue)
	assert.Equal(t, r.RuleName, updated.RuleName)
	// conditions are replaced as a whole
	assert.Equal(t, 0.0, updated.Conditions.MinCartValue)
	assert.Equal(t, 900.0, updated.Conditions.MaxCartValue)
	assert.Empty(t, updated.Conditions.TriggerProducts)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
}

func TestUpsellRuleUsecase_UpdateRevalidatesOwnership(t *testing.T) {
	f := newFixture(t)
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})

	offered := []string{"P5"}
	_, err := f.ruleUC.Update(context.Background(), "s1", r.ID, ruledom.Patch{OfferedProducts: &offered})
	assert.ErrorIs(t, err, ruledom.ErrProductNotOwned)
	assert.Equal(t, []string{"P2"}, f.rule(t, r.ID).OfferedProducts)
}

func TestUpsellRuleUsecase_OtherShopIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})

	name := "hijack"
	_, err := f.ruleUC.Update(ctx, "s2", r.ID, ruledom.Patch{RuleName: &name})
	assert.ErrorIs(t, err, ruledom.ErrNotFound)

	_, err = f.ruleUC.Toggle(ctx, "s2", r.ID)
	assert.ErrorIs(t, err, ruledom.ErrNotFound)

	assert.ErrorIs(t, f.ruleUC.Delete(ctx, "s2", r.ID), ruledom.ErrNotFound)

	_, err = f.ruleUC.Get(ctx, "s1", "missing")
	assert.ErrorIs(t, err, ruledom.ErrNotFound)
}

func TestUpsellRuleUsecase_ToggleAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})

	toggled, err := f.ruleUC.Toggle(ctx, "s1", r.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	require.NoError(t, f.ruleUC.Delete(ctx, "s1", r.ID))
	_, err = f.ruleUC.Get(ctx, "s1", r.ID)
	assert.ErrorIs(t, err, ruledom.ErrNotFound)

	assert.ErrorIs(t, f.ruleUC.Delete(ctx, "s1", r.ID), ruledom.ErrNotFound)
}

func TestUpsellRuleUsecase_ListSortAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 5, []string{"P2"},
		withPriority(ruledom.PriorityLow), withName("Low tea"))
	highOld := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 5, []string{"P3"},
		withPriority(ruledom.PriorityHigh), withName("Cup deal"))
	highNew := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 5, []string{"P2"},
		withPriority(ruledom.PriorityHigh), withName("Premium TEA"))
	f.createRule(t, "s2", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 5, []string{"P6"})

	_, err := f.ruleUC.Toggle(ctx, "s1", highOld.ID)
	require.NoError(t, err)

	all, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{highNew.ID, highOld.ID, low.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	tea, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{Search: "tea"})
	require.NoError(t, err)
	assert.Len(t, tea, 2)

	cross, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{RuleType: ruledom.RuleTypeCrossSell})
	require.NoError(t, err)
	require.Len(t, cross, 1)
	assert.Equal(t, highOld.ID, cross[0].ID)

	active, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{Status: usecase.RuleStatusActive})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	inactive, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{Status: usecase.RuleStatusInactive})
	require.NoError(t, err)
	assert.Len(t, inactive, 1)

	_, err = f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{Status: "archived"})
	assert.ErrorIs(t, err, usecase.ErrUpsellInvalidArgument)
}

func TestUpsellRuleUsecase_ListIsCachedUntilMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 5, []string{"P2"})

	first, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// written behind the usecase's back: the cached listing is still served
	sneaky, err := ruledom.New("sneaky", "s1", ruledom.Fields{
		RuleName: "x", RuleType: ruledom.RuleTypeUpsell, DiscountType: ruledom.DiscountFlat,
		OfferedProducts: []string{"P2"},
	}, t0)
	require.NoError(t, err)
	_, err = f.rules.Create(ctx, sneaky)
	require.NoError(t, err)

	cached, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{})
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	// any mutation drops shop and public keys
	_, err = f.cache.Remember(ctx, usecase.PublicRuleListKey("s1"), time.Minute, func(context.Context) ([]byte, error) {
		return []byte("[]"), nil
	})
	require.NoError(t, err)
	f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountFlat, 5, []string{"P3"})
	assert.Empty(t, f.cache.Keys())

	fresh, err := f.ruleUC.List(ctx, "s1", usecase.RuleListFilter{})
	require.NoError(t, err)
	assert.Len(t, fresh, 3)
}

func TestUpsellRuleUsecase_GetStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 5, []string{"P2"})

	stats, err := f.ruleUC.GetStats(ctx, "s1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.ConversionRate)

	require.NoError(t, f.rules.IncrementStats(ctx, r.ID, ruledom.StatsDelta{Impressions: 3, Conversions: 1, Revenue: 245}))

	stats, err = f.ruleUC.GetStats(ctx, "s1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Impressions)
	assert.Equal(t, int64(1), stats.Conversions)
	assert.Equal(t, 245.0, stats.Revenue)
	assert.Equal(t, 33.33, stats.ConversionRate)
}
