// internal/application/usecase/upsellRule_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

var ErrUpsellInvalidArgument = errors.New("upsell_usecase: invalid argument")

// RuleStatus filters listings by IsActive.
type RuleStatus string

const (
	RuleStatusAll      RuleStatus = ""
	RuleStatusActive   RuleStatus = "active"
	RuleStatusInactive RuleStatus = "inactive"
)

// RuleListFilter is the owner-facing listing filter.
type RuleListFilter struct {
	Search   string
	RuleType ruledom.RuleType
	Status   RuleStatus
}

// RuleStats is a rule's counters plus the derived conversion rate (percent).
type RuleStats struct {
	RuleID         string  `json:"ruleId"`
	RuleName       string  `json:"ruleName"`
	RuleType       string  `json:"ruleType"`
	IsActive       bool    `json:"isActive"`
	Impressions    int64   `json:"impressions"`
	Conversions    int64   `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversionRate"`
}

// UpsellRuleUsecase is the shop-scoped rule store.
type UpsellRuleUsecase struct {
	repo    ruledom.Repository
	catalog productdom.Catalog
	cache   Cache
	listTTL time.Duration
	clock   Clock
	newID   func() string
	log     *zap.Logger
}

func NewUpsellRuleUsecase(
	repo ruledom.Repository,
	catalog productdom.Catalog,
	cache Cache,
	listTTL time.Duration,
	logger *zap.Logger,
) *UpsellRuleUsecase {
	if cache == nil {
		cache = noopCache{}
	}
	if listTTL <= 0 {
		listTTL = DefaultRuleListTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpsellRuleUsecase{
		repo:    repo,
		catalog: catalog,
		cache:   cache,
		listTTL: listTTL,
		clock:   systemClock{},
		newID:   uuid.NewString,
		log:     logger.Named("upsell_rule_usecase"),
	}
}

// WithClock is useful for tests.
func (uc *UpsellRuleUsecase) WithClock(clock Clock) *UpsellRuleUsecase {
	if clock != nil {
		uc.clock = clock
	}
	return uc
}

// Create validates product ownership and persists a new rule (active by default).
func (uc *UpsellRuleUsecase) Create(ctx context.Context, shopID string, f ruledom.Fields) (ruledom.Rule, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return ruledom.Rule{}, ErrUpsellInvalidArgument
	}

	r, err := ruledom.New(uc.newID(), shopID, f, uc.clock.Now())
	if err != nil {
		return ruledom.Rule{}, err
	}
	if err := uc.ensureOwned(ctx, shopID, r.ProductIDs()); err != nil {
		return ruledom.Rule{}, err
	}

	created, err := uc.repo.Create(ctx, r)
	if err != nil {
		return ruledom.Rule{}, fmt.Errorf("create rule: %w", err)
	}

	uc.invalidate(ctx, shopID)
	uc.log.Info("rule created",
		zap.String("shopId", shopID),
		zap.String("ruleId", created.ID),
		zap.String("ruleType", string(created.RuleType)),
	)
	return created, nil
}

// Update merges patch onto the shop's rule, re-validating any product references it carries.
func (uc *UpsellRuleUsecase) Update(ctx context.Context, shopID, ruleID string, patch ruledom.Patch) (ruledom.Rule, error) {
	r, err := uc.owned(ctx, shopID, ruleID)
	if err != nil {
		return ruledom.Rule{}, err
	}

	if ids := patch.ProductIDs(); len(ids) > 0 {
		if err := uc.ensureOwned(ctx, r.ShopID, ids); err != nil {
			return ruledom.Rule{}, err
		}
	}
	if err := r.ApplyPatch(patch, uc.clock.Now()); err != nil {
		return ruledom.Rule{}, err
	}

	saved, err := uc.repo.Save(ctx, r)
	if err != nil {
		return ruledom.Rule{}, fmt.Errorf("save rule: %w", err)
	}

	uc.invalidate(ctx, r.ShopID)
	return saved, nil
}

// Toggle flips IsActive.
func (uc *UpsellRuleUsecase) Toggle(ctx context.Context, shopID, ruleID string) (ruledom.Rule, error) {
	r, err := uc.owned(ctx, shopID, ruleID)
	if err != nil {
		return ruledom.Rule{}, err
	}

	r.Toggle(uc.clock.Now())

	saved, err := uc.repo.Save(ctx, r)
	if err != nil {
		return ruledom.Rule{}, fmt.Errorf("save rule: %w", err)
	}

	uc.invalidate(ctx, r.ShopID)
	uc.log.Info("rule toggled",
		zap.String("shopId", r.ShopID),
		zap.String("ruleId", r.ID),
		zap.Bool("isActive", saved.IsActive),
	)
	return saved, nil
}

// Delete removes the rule permanently.
func (uc *UpsellRuleUsecase) Delete(ctx context.Context, shopID, ruleID string) error {
	r, err := uc.owned(ctx, shopID, ruleID)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, r.ID); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	uc.invalidate(ctx, r.ShopID)
	return nil
}

// Get returns one of the shop's rules.
func (uc *UpsellRuleUsecase) Get(ctx context.Context, shopID, ruleID string) (ruledom.Rule, error) {
	return uc.owned(ctx, shopID, ruleID)
}

// GetStats returns the rule counters with the conversion rate.
func (uc *UpsellRuleUsecase) GetStats(ctx context.Context, shopID, ruleID string) (RuleStats, error) {
	r, err := uc.owned(ctx, shopID, ruleID)
	if err != nil {
		return RuleStats{}, err
	}
	return RuleStats{
		RuleID:         r.ID,
		RuleName:       r.RuleName,
		RuleType:       string(r.RuleType),
		IsActive:       r.IsActive,
		Impressions:    r.Stats.Impressions,
		Conversions:    r.Stats.Conversions,
		Revenue:        r.Stats.Revenue,
		ConversionRate: r.Stats.ConversionRate(),
	}, nil
}

// List returns the shop's rules by priority desc then newest first.
// Results are cached for listTTL and dropped on every mutation.
func (uc *UpsellRuleUsecase) List(ctx context.Context, shopID string, f RuleListFilter) ([]ruledom.Rule, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return nil, ErrUpsellInvalidArgument
	}

	filter := ruledom.Filter{ShopID: shopID, Search: strings.TrimSpace(f.Search)}
	switch f.RuleType {
	case "":
	case ruledom.RuleTypeUpsell, ruledom.RuleTypeCrossSell:
		t := f.RuleType
		filter.RuleType = &t
	default:
		return nil, ruledom.ErrInvalidRuleType
	}
	switch f.Status {
	case RuleStatusAll:
	case RuleStatusActive, RuleStatusInactive:
		active := f.Status == RuleStatusActive
		filter.IsActive = &active
	default:
		return nil, ErrUpsellInvalidArgument
	}

	return RememberJSON(ctx, uc.cache, ShopRuleListKey(shopID, f), uc.listTTL, func(ctx context.Context) ([]ruledom.Rule, error) {
		rules, err := uc.repo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
		ruledom.SortByPriority(rules)
		if rules == nil {
			rules = []ruledom.Rule{}
		}
		return rules, nil
	})
}

// ----------------------------
// Helpers
// ----------------------------

// owned loads ruleID and hides rules of other shops behind ErrNotFound.
func (uc *UpsellRuleUsecase) owned(ctx context.Context, shopID, ruleID string) (ruledom.Rule, error) {
	shopID = strings.TrimSpace(shopID)
	ruleID = strings.TrimSpace(ruleID)
	if shopID == "" || ruleID == "" {
		return ruledom.Rule{}, ErrUpsellInvalidArgument
	}

	r, err := uc.repo.GetByID(ctx, ruleID)
	if err != nil {
		return ruledom.Rule{}, err
	}
	if r.ShopID != shopID {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}
	return r, nil
}

// ensureOwned checks by set membership that every id resolves to a product of shopID.
func (uc *UpsellRuleUsecase) ensureOwned(ctx context.Context, shopID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	products, err := uc.catalog.ListByIDs(ctx, shopID, ids)
	if err != nil {
		return fmt.Errorf("resolve products: %w", err)
	}

	resolved := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.ShopID == shopID {
			resolved[p.ID] = struct{}{}
		}
	}
	if len(resolved) == len(ids) {
		return nil
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			missing = append(missing, id)
		}
	}
	return fmt.Errorf("%w: %s", ruledom.ErrProductNotOwned, strings.Join(missing, ", "))
}

// invalidate drops owner and public cache entries of the shop.
// The write already happened, so failures are only logged.
func (uc *UpsellRuleUsecase) invalidate(ctx context.Context, shopID string) {
	for _, pattern := range []string{ShopRuleCachePattern(shopID), PublicRuleCachePattern(shopID)} {
		if err := uc.cache.DeletePattern(ctx, pattern); err != nil {
			uc.log.Warn("cache invalidation failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
		}
	}
}
