// internal/adapters/out/firestore/upsell_rule_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ruledom "storefront/internal/domain/upsellRule"
)

var ErrRuleExists = errors.New("upsell_rule_repository_fs: rule already exists")

// UpsellRuleRepositoryFS implements upsellRule.Repository using Firestore.
//
// Collection design:
// - collection: upsell_rules
// - docId: rule id
// - stats.* are only written through IncrementStats (firestore.Increment)
//
// Indexes: (shopId, isActive). Search and cart-total bounds are applied in memory.
type UpsellRuleRepositoryFS struct {
	Client *firestore.Client
}

func NewUpsellRuleRepositoryFS(client *firestore.Client) *UpsellRuleRepositoryFS {
	return &UpsellRuleRepositoryFS{Client: client}
}

var _ ruledom.Repository = (*UpsellRuleRepositoryFS)(nil)

func (r *UpsellRuleRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("upsell_rules")
}

func (r *UpsellRuleRepositoryFS) GetByID(ctx context.Context, id string) (ruledom.Rule, error) {
	if r == nil || r.Client == nil {
		return ruledom.Rule{}, errors.New("upsell_rule_repository_fs: firestore client is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ruledom.Rule{}, ruledom.ErrNotFound
		}
		return ruledom.Rule{}, err
	}
	return ruleFromSnapshot(snap)
}

func (r *UpsellRuleRepositoryFS) List(ctx context.Context, f ruledom.Filter) ([]ruledom.Rule, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("upsell_rule_repository_fs: firestore client is nil")
	}

	var queries []firestore.Query
	if shops := f.Shops(); len(shops) > 0 {
		for _, chunk := range chunkIDs(shops, inQueryLimit) {
			queries = append(queries, r.col().Where("shopId", "in", chunk))
		}
	} else {
		queries = append(queries, r.col().Query)
	}

	out := make([]ruledom.Rule, 0)
	for _, q := range queries {
		if f.IsActive != nil {
			q = q.Where("isActive", "==", *f.IsActive)
		}
		if f.RuleType != nil {
			q = q.Where("ruleType", "==", string(*f.RuleType))
		}

		rules, err := r.collect(q.Documents(ctx), f)
		if err != nil {
			return nil, err
		}
		out = append(out, rules...)
	}

	ruledom.SortByPriority(out)
	return out, nil
}

func (r *UpsellRuleRepositoryFS) collect(it *firestore.DocumentIterator, f ruledom.Filter) ([]ruledom.Rule, error) {
	defer it.Stop()

	var out []ruledom.Rule
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		rule, err := ruleFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if f.Matches(rule) {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *UpsellRuleRepositoryFS) Create(ctx context.Context, rule ruledom.Rule) (ruledom.Rule, error) {
	if r == nil || r.Client == nil {
		return ruledom.Rule{}, errors.New("upsell_rule_repository_fs: firestore client is nil")
	}
	id := strings.TrimSpace(rule.ID)
	if id == "" {
		return ruledom.Rule{}, ruledom.ErrInvalidID
	}

	ref := r.col().Doc(id)
	var err error
	if tx := txFromCtx(ctx); tx != nil {
		err = tx.Create(ref, rule)
	} else {
		_, err = ref.Create(ctx, rule)
	}
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ruledom.Rule{}, fmt.Errorf("%w: %s", ErrRuleExists, id)
		}
		return ruledom.Rule{}, err
	}
	return rule, nil
}

// Save overwrites every field except stats.
func (r *UpsellRuleRepositoryFS) Save(ctx context.Context, rule ruledom.Rule) (ruledom.Rule, error) {
	if r == nil || r.Client == nil {
		return ruledom.Rule{}, errors.New("upsell_rule_repository_fs: firestore client is nil")
	}
	id := strings.TrimSpace(rule.ID)
	if id == "" {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}

	ref := r.col().Doc(id)
	updates := ruleUpdates(rule)

	var err error
	if tx := txFromCtx(ctx); tx != nil {
		err = tx.Update(ref, updates)
	} else {
		_, err = ref.Update(ctx, updates)
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ruledom.Rule{}, ruledom.ErrNotFound
		}
		return ruledom.Rule{}, err
	}

	if txFromCtx(ctx) != nil {
		return rule, nil
	}
	return r.GetByID(ctx, id)
}

func (r *UpsellRuleRepositoryFS) Delete(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errors.New("upsell_rule_repository_fs: firestore client is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ruledom.ErrNotFound
	}

	ref := r.col().Doc(id)
	var err error
	if tx := txFromCtx(ctx); tx != nil {
		err = tx.Delete(ref, firestore.Exists)
	} else {
		_, err = ref.Delete(ctx, firestore.Exists)
	}
	if status.Code(err) == codes.NotFound {
		return ruledom.ErrNotFound
	}
	return err
}

func (r *UpsellRuleRepositoryFS) IncrementStats(ctx context.Context, id string, d ruledom.StatsDelta) error {
	if r == nil || r.Client == nil {
		return errors.New("upsell_rule_repository_fs: firestore client is nil")
	}
	if d.IsZero() {
		return nil
	}

	ups := statsIncrements(d)
	ref := r.col().Doc(strings.TrimSpace(id))

	var err error
	if tx := txFromCtx(ctx); tx != nil {
		err = tx.Update(ref, ups)
	} else {
		_, err = ref.Update(ctx, ups)
	}
	if status.Code(err) == codes.NotFound {
		return ruledom.ErrNotFound
	}
	return err
}

// ========================================
// Mapping Helpers
// ========================================

func ruleFromSnapshot(snap *firestore.DocumentSnapshot) (ruledom.Rule, error) {
	var rule ruledom.Rule
	if err := snap.DataTo(&rule); err != nil {
		return ruledom.Rule{}, fmt.Errorf("upsell_rule_repository_fs: decode %s: %w", snap.Ref.ID, err)
	}
	// docId is the source of truth
	rule.ID = snap.Ref.ID
	if rule.OfferedProducts == nil {
		rule.OfferedProducts = []string{}
	}
	return rule, nil
}

func ruleUpdates(rule ruledom.Rule) []firestore.Update {
	return []firestore.Update{
		{Path: "shopId", Value: rule.ShopID},
		{Path: "ruleName", Value: rule.RuleName},
		{Path: "description", Value: rule.Description},
		{Path: "ruleType", Value: string(rule.RuleType)},
		{Path: "priority", Value: string(rule.Priority)},
		{Path: "discountType", Value: string(rule.DiscountType)},
		{Path: "discountValue", Value: rule.DiscountValue},
		{Path: "offeredProducts", Value: rule.OfferedProducts},
		{Path: "conditions", Value: rule.Conditions},
		{Path: "isActive", Value: rule.IsActive},
		{Path: "updatedAt", Value: rule.UpdatedAt.UTC()},
	}
}

func statsIncrements(d ruledom.StatsDelta) []firestore.Update {
	var ups []firestore.Update
	if d.Impressions != 0 {
		ups = append(ups, firestore.Update{Path: "stats.impressions", Value: firestore.Increment(d.Impressions)})
	}
	if d.Conversions != 0 {
		ups = append(ups, firestore.Update{Path: "stats.conversions", Value: firestore.Increment(d.Conversions)})
	}
	if d.Revenue != 0 {
		ups = append(ups, firestore.Update{Path: "stats.revenue", Value: firestore.Increment(d.Revenue)})
	}
	return ups
}
