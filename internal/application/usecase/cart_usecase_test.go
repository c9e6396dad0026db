package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

func TestCartUsecase_AddItemCreatesCartAtOwnPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.cartUC.AddItem(ctx, guest, "s1", "P4", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "sess-1", c.SessionID)
	assert.Equal(t, 72.0, c.Items[0].PriceAtAddition)
	assert.Equal(t, 144.0, c.TotalAmount)
	assert.Equal(t, t0.Add(cartdom.DefaultCartTTL), c.ExpiresAt)

	c, err = f.cartUC.AddItem(ctx, guest, "s1", "P4", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 216.0, c.TotalAmount)

	got, err := f.cartUC.Get(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestCartUsecase_AddItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cartUC.AddItem(ctx, cartdom.Identity{}, "s1", "P1", 1)
	assert.ErrorIs(t, err, usecase.ErrIdentityRequired)

	_, err = f.cartUC.AddItem(ctx, guest, "s1", "P1", 0)
	assert.ErrorIs(t, err, usecase.ErrCartInvalidArgument)

	_, err = f.cartUC.AddItem(ctx, guest, "s2", "P1", 1)
	assert.ErrorIs(t, err, productdom.ErrNotFound)

	_, err = f.cartUC.Get(ctx, guest)
	assert.ErrorIs(t, err, cartdom.ErrNotFound)
}

func TestCartUsecase_RecalculateAfterOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.createRule(t, "s1", ruledom.RuleTypeUpsell, ruledom.DiscountFlat, 50, []string{"P2"})
	cross := f.createRule(t, "s1", ruledom.RuleTypeCrossSell, ruledom.DiscountPercentage, 10, []string{"P3"})
	f.seedCart(t, line("l1", "P1", "s1", 2, 200))

	c, err := f.upsellUC.ApplyUpsell(ctx, guest, r.ID, "P2", "P1")
	require.NoError(t, err)
	assert.Equal(t, 400.0, c.TotalAmount)

	c, err = f.cartUC.Recalculate(ctx, guest)
	require.NoError(t, err)
	// 250 - 50 = 200 per unit
	assert.Equal(t, 400.0, c.TotalAmount)

	_, err = f.upsellUC.ApplyCrossSell(ctx, guest, cross.ID, "P3")
	require.NoError(t, err)
	c, err = f.cartUC.Recalculate(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 490.0, c.TotalAmount)
	assert.Equal(t, 490.0, f.cart(t).TotalAmount)
}
