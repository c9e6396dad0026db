// internal/application/query/mall/upsell_query.go
package mall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	uc "storefront/internal/application/usecase"
	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

// UpsellPublicQuery serves active rules of a shop to anyone (no cart needed).
type UpsellPublicQuery struct {
	Rules   ruledom.Repository
	Catalog productdom.Catalog
	Cache   uc.Cache
	TTL     time.Duration

	offers *uc.OfferBuilder
	log    *zap.Logger
}

func NewUpsellPublicQuery(
	rules ruledom.Repository,
	catalog productdom.Catalog,
	cache uc.Cache,
	ttl time.Duration,
	icons uc.IconURLResolver,
	logger *zap.Logger,
) *UpsellPublicQuery {
	if ttl <= 0 {
		ttl = uc.DefaultRuleListTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpsellPublicQuery{
		Rules:   rules,
		Catalog: catalog,
		Cache:   cache,
		TTL:     ttl,
		offers:  uc.NewOfferBuilder(icons),
		log:     logger.Named("upsell_public_query"),
	}
}

// ListPublic returns the shop's active rules, priced, by priority.
func (q *UpsellPublicQuery) ListPublic(ctx context.Context, shopID string) ([]uc.RuleOffer, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, ErrShopRequired
	}

	return uc.RememberJSON(ctx, q.Cache, uc.PublicRuleListKey(shopID), q.TTL, func(ctx context.Context) ([]uc.RuleOffer, error) {
		active := true
		rules, err := q.Rules.List(ctx, ruledom.Filter{ShopID: shopID, IsActive: &active})
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
		ruledom.SortByPriority(rules)
		return q.build(ctx, shopID, rules)
	})
}

// GetPublic returns one active rule. shopID is optional; when set the rule must belong to it.
// Inactive rules are reported as ErrNotFound.
func (q *UpsellPublicQuery) GetPublic(ctx context.Context, shopID, ruleID string) (uc.RuleOffer, error) {
	shopID = strings.TrimSpace(shopID)
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return uc.RuleOffer{}, uc.ErrUpsellInvalidArgument
	}

	load := func(ctx context.Context) (uc.RuleOffer, error) {
		r, err := q.Rules.GetByID(ctx, ruleID)
		if err != nil {
			if errors.Is(err, ruledom.ErrNotFound) {
				return uc.RuleOffer{}, ErrNotFound
			}
			return uc.RuleOffer{}, err
		}
		if !r.IsActive || (shopID != "" && r.ShopID != shopID) {
			return uc.RuleOffer{}, ErrNotFound
		}
		offers, err := q.build(ctx, r.ShopID, []ruledom.Rule{r})
		if err != nil {
			return uc.RuleOffer{}, err
		}
		if len(offers) == 0 {
			// every offered product left the catalog
			return uc.RuleOffer{}, ErrNotFound
		}
		return offers[0], nil
	}

	// public snapshots are keyed by shop, so only shop-scoped lookups are cached
	if shopID == "" {
		return load(ctx)
	}
	return uc.RememberJSON(ctx, q.Cache, uc.PublicRuleKey(shopID, ruleID), q.TTL, load)
}

func (q *UpsellPublicQuery) build(ctx context.Context, shopID string, rules []ruledom.Rule) ([]uc.RuleOffer, error) {
	out := make([]uc.RuleOffer, 0, len(rules))
	if len(rules) == 0 {
		return out, nil
	}

	products, err := q.Catalog.ListByIDs(ctx, shopID, uc.OfferedProductIDs(rules))
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	index := productdom.ByID(products)

	for _, r := range rules {
		if offer, ok := q.offers.Build(ctx, r, index); ok {
			out = append(out, offer)
		} else {
			q.log.Debug("rule has no resolvable products", zap.String("ruleId", r.ID))
		}
	}
	return out, nil
}
