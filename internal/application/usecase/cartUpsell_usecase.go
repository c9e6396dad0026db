// internal/application/usecase/cartUpsell_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
	ruledom "storefront/internal/domain/upsellRule"
)

// CartUpsellUsecase evaluates offers for a cart and applies accepted offers to it.
//
// Mutations never recompute the cart total; callers run CartUsecase.Recalculate afterwards.
type CartUpsellUsecase struct {
	rules       ruledom.Repository
	carts       cartdom.Repository
	catalog     productdom.Catalog
	shops       shopdom.Repository
	tx          TxRunner
	impressions ImpressionSink
	metrics     RuleMetrics
	offers      *OfferBuilder
	clock       Clock
	newID       func() string
	log         *zap.Logger
}

// CartUpsellDeps groups the collaborators; nil optional fields get no-op defaults.
type CartUpsellDeps struct {
	Rules   ruledom.Repository
	Carts   cartdom.Repository
	Catalog productdom.Catalog
	Shops   shopdom.Repository

	Tx          TxRunner        // optional, sequential when nil
	Impressions ImpressionSink  // optional
	Metrics     RuleMetrics     // optional
	Icons       IconURLResolver // optional
	Clock       Clock           // optional
	Logger      *zap.Logger     // optional
}

func NewCartUpsellUsecase(d CartUpsellDeps) *CartUpsellUsecase {
	uc := &CartUpsellUsecase{
		rules:       d.Rules,
		carts:       d.Carts,
		catalog:     d.Catalog,
		shops:       d.Shops,
		tx:          d.Tx,
		impressions: d.Impressions,
		metrics:     d.Metrics,
		offers:      NewOfferBuilder(d.Icons),
		clock:       d.Clock,
		newID:       uuid.NewString,
		log:         d.Logger,
	}
	if uc.tx == nil {
		uc.tx = SequentialTx{}
	}
	if uc.impressions == nil {
		uc.impressions = noopImpressions{}
	}
	if uc.metrics == nil {
		uc.metrics = noopMetrics{}
	}
	if uc.clock == nil {
		uc.clock = systemClock{}
	}
	if uc.log == nil {
		uc.log = zap.NewNop()
	}
	uc.log = uc.log.Named("cart_upsell_usecase")
	return uc
}

// ============================================================
// Evaluation
// ============================================================

// EvaluateCart returns the current offers for the identity's cart.
// productID, when set, keeps only rules triggered by that product.
//
// Absent or empty carts yield an empty result. Rule, catalog and cart lookup
// failures are logged and also yield an empty result.
func (uc *CartUpsellUsecase) EvaluateCart(ctx context.Context, id cartdom.Identity, productID string) (CartOffers, error) {
	result := emptyCartOffers()
	if id.IsZero() {
		return result, nil
	}

	c, err := uc.carts.GetByIdentity(ctx, id.Normalize())
	if err != nil {
		if !errors.Is(err, cartdom.ErrNotFound) {
			uc.log.Warn("evaluate: load cart failed", zap.Error(err))
		}
		return result, nil
	}
	if c.IsEmpty() {
		return result, nil
	}

	shopIDs := c.ShopIDs()
	total := c.TotalAmount
	active := true

	rules, err := uc.rules.List(ctx, ruledom.Filter{
		ShopIDs:   shopIDs,
		IsActive:  &active,
		CartTotal: &total,
	})
	if err != nil {
		uc.log.Warn("evaluate: rule query failed", zap.Strings("shopIds", shopIDs), zap.Error(err))
		return result, nil
	}

	if pid := strings.TrimSpace(productID); pid != "" {
		scoped := rules[:0]
		for _, r := range rules {
			if r.TriggeredBy(pid) {
				scoped = append(scoped, r)
			}
		}
		rules = scoped
	}
	if len(rules) == 0 {
		return result, nil
	}

	ruledom.SortByPriority(rules)

	// group by shop (rules keep priority order inside each group)
	byShop := make(map[string][]ruledom.Rule, len(shopIDs))
	for _, r := range rules {
		byShop[r.ShopID] = append(byShop[r.ShopID], r)
	}

	names := uc.shopNames(ctx, shopIDs)

	for _, shopID := range shopIDs {
		group := byShop[shopID]
		if len(group) == 0 {
			continue
		}

		products, err := uc.catalog.ListByIDs(ctx, shopID, OfferedProductIDs(group))
		if err != nil {
			uc.log.Warn("evaluate: catalog lookup failed", zap.String("shopId", shopID), zap.Error(err))
			return emptyCartOffers(), nil
		}
		index := productdom.ByID(products)

		so := ShopOffers{
			ShopID:    shopID,
			ShopName:  names[shopID],
			Upsell:    []RuleOffer{},
			CrossSell: []RuleOffer{},
		}
		for _, r := range group {
			offer, ok := uc.offers.Build(ctx, r, index)
			if !ok {
				continue
			}
			switch r.RuleType {
			case ruledom.RuleTypeUpsell:
				so.Upsell = append(so.Upsell, offer)
			case ruledom.RuleTypeCrossSell:
				so.CrossSell = append(so.CrossSell, offer)
			default:
				continue
			}
			result.TotalRules++
		}

		if len(so.Upsell)+len(so.CrossSell) > 0 {
			result.Shops[shopID] = so
		}
	}

	if result.TotalRules > 0 {
		uc.impressions.Record(result.RuleIDs())
	}
	return result, nil
}

func (uc *CartUpsellUsecase) shopNames(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	if uc.shops == nil {
		return out
	}
	shops, err := uc.shops.ListByIDs(ctx, ids)
	if err != nil {
		uc.log.Warn("evaluate: shop lookup failed", zap.Error(err))
		return out
	}
	for _, s := range shops {
		out[s.ID] = s.Name
	}
	return out
}

// ============================================================
// Mutations
// ============================================================

// ApplyUpsell swaps the line of replacedProductID (or line id) for selectedProductID at the
// rule's discounted price, keeping the line's quantity and slot.
func (uc *CartUpsellUsecase) ApplyUpsell(ctx context.Context, id cartdom.Identity, ruleID, selectedProductID, replacedProductID string) (*cartdom.Cart, error) {
	selectedProductID = strings.TrimSpace(selectedProductID)
	replacedProductID = strings.TrimSpace(replacedProductID)
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}
	if selectedProductID == "" || replacedProductID == "" {
		return nil, ErrUpsellInvalidArgument
	}

	r, err := uc.loadRule(ctx, ruleID, ruledom.RuleTypeUpsell, selectedProductID)
	if err != nil {
		return nil, err
	}

	c, err := uc.loadCart(ctx, id)
	if err != nil {
		return nil, err
	}

	idx, err := c.LocateLine(replacedProductID)
	if err != nil {
		return nil, err
	}
	original := c.Items[idx]

	price, err := uc.offerPrice(ctx, r, selectedProductID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := c.ReplaceLine(idx, cartdom.CartItem{
		ID:              original.ID,
		ProductID:       selectedProductID,
		ShopID:          r.ShopID,
		Quantity:        original.Quantity,
		PriceAtAddition: price.Final,
		UpsellRuleApplied: &cartdom.AppliedRule{
			RuleID:            r.ID,
			RuleName:          r.RuleName,
			DiscountType:      string(r.DiscountType),
			DiscountValue:     r.DiscountValue,
			OriginalProductID: original.ProductID,
			AppliedAt:         now,
		},
	}, now); err != nil {
		return nil, err
	}

	revenue := ruledom.RoundCents(price.Final * float64(original.Quantity))
	if err := uc.commit(ctx, r, c, revenue); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyCrossSell adds one unit of selectedProductID: the existing line is incremented,
// otherwise a new line with quantity 1 is appended.
func (uc *CartUpsellUsecase) ApplyCrossSell(ctx context.Context, id cartdom.Identity, ruleID, selectedProductID string) (*cartdom.Cart, error) {
	selectedProductID = strings.TrimSpace(selectedProductID)
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}
	if selectedProductID == "" {
		return nil, ErrUpsellInvalidArgument
	}

	r, err := uc.loadRule(ctx, ruleID, ruledom.RuleTypeCrossSell, selectedProductID)
	if err != nil {
		return nil, err
	}

	price, err := uc.offerPrice(ctx, r, selectedProductID)
	if err != nil {
		return nil, err
	}

	c, err := uc.loadCart(ctx, id)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	snapshot := &cartdom.AppliedRule{
		RuleID:        r.ID,
		RuleName:      r.RuleName,
		DiscountType:  string(r.DiscountType),
		DiscountValue: r.DiscountValue,
		AppliedAt:     now,
	}

	qty := 1
	if idx := c.IndexOfProduct(selectedProductID); idx >= 0 {
		if err := c.IncrementLine(idx, 1, snapshot, now); err != nil {
			return nil, err
		}
		qty = c.Items[idx].Quantity
	} else {
		if err := c.AddItem(cartdom.CartItem{
			ID:                   uc.newID(),
			ProductID:            selectedProductID,
			ShopID:               r.ShopID,
			Quantity:             1,
			PriceAtAddition:      price.Final,
			CrossSellRuleApplied: snapshot,
		}, now); err != nil {
			return nil, err
		}
	}

	revenue := ruledom.RoundCents(price.Final * float64(qty))
	if err := uc.commit(ctx, r, c, revenue); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveAppliedRule clears both rule snapshots on the line of productID.
// Price and quantity stay as they are.
func (uc *CartUpsellUsecase) RemoveAppliedRule(ctx context.Context, id cartdom.Identity, productID string) (*cartdom.Cart, error) {
	productID = strings.TrimSpace(productID)
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}
	if productID == "" {
		return nil, ErrUpsellInvalidArgument
	}

	c, err := uc.loadCart(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.ClearAppliedRules(productID, uc.clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// ----------------------------
// Helpers
// ----------------------------

// loadRule returns an active rule of the wanted type offering productID.
func (uc *CartUpsellUsecase) loadRule(ctx context.Context, ruleID string, want ruledom.RuleType, productID string) (ruledom.Rule, error) {
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return ruledom.Rule{}, ErrUpsellInvalidArgument
	}

	r, err := uc.rules.GetByID(ctx, ruleID)
	if err != nil {
		return ruledom.Rule{}, err
	}
	if !r.IsActive {
		return ruledom.Rule{}, ruledom.ErrInactive
	}
	if r.RuleType != want {
		return ruledom.Rule{}, fmt.Errorf("%w: rule %s is %s, want %s", ruledom.ErrInvalidRuleType, r.ID, r.RuleType, want)
	}
	if !r.Offers(productID) {
		return ruledom.Rule{}, fmt.Errorf("%w: %s", ruledom.ErrProductNotOffered, productID)
	}
	return r, nil
}

func (uc *CartUpsellUsecase) loadCart(ctx context.Context, id cartdom.Identity) (*cartdom.Cart, error) {
	c, err := uc.carts.GetByIdentity(ctx, id.Normalize())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, cartdom.ErrNotFound
	}
	return c, nil
}

// offerPrice prices productID through the same two stages as the evaluator.
func (uc *CartUpsellUsecase) offerPrice(ctx context.Context, r ruledom.Rule, productID string) (ruledom.Price, error) {
	ps, err := uc.catalog.ListByIDs(ctx, r.ShopID, []string{productID})
	if err != nil {
		return ruledom.Price{}, fmt.Errorf("resolve product: %w", err)
	}
	p, ok := productdom.ByID(ps)[productID]
	if !ok {
		return ruledom.Price{}, fmt.Errorf("%w: %s", productdom.ErrNotFound, productID)
	}
	return r.PriceFor(p.UnitPrice, ruledom.DiscountType(p.DiscountType), p.DiscountValue), nil
}

// commit writes the rule conversion and the cart together through the TxRunner.
// Both writes are logged so a partial failure can be reconciled.
func (uc *CartUpsellUsecase) commit(ctx context.Context, r ruledom.Rule, c *cartdom.Cart, revenue float64) error {
	delta := ruledom.StatsDelta{Conversions: 1, Revenue: revenue}
	fields := []zap.Field{
		zap.String("ruleId", r.ID),
		zap.String("ruleType", string(r.RuleType)),
		zap.String("cartId", c.ID),
		zap.Float64("revenue", revenue),
	}

	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.rules.IncrementStats(ctx, r.ID, delta); err != nil {
			return fmt.Errorf("increment rule stats: %w", err)
		}
		uc.log.Info("rule conversion written", fields...)

		if err := uc.carts.Save(ctx, c); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		uc.log.Info("cart written", fields...)
		return nil
	})
	if err != nil {
		uc.log.Error("offer commit failed", append(fields, zap.Error(err))...)
		return err
	}

	uc.metrics.ConversionRecorded(ctx, r.RuleType, revenue)
	return nil
}
