// internal/domain/upsellRule/repository_port.go
package upsellRule

import (
	"context"
	"sort"
	"strings"
)

// Filter narrows rule listings. Zero values mean "no constraint".
type Filter struct {
	// ShopID and ShopIDs are OR-ed together.
	ShopID  string
	ShopIDs []string

	// Search is a case-insensitive substring match on RuleName.
	Search   string
	RuleType *RuleType
	IsActive *bool

	// CartTotal keeps rules whose min/max bounds accept the total.
	CartTotal *float64
}

// Shops returns the distinct shop ids the filter is scoped to.
func (f Filter) Shops() []string {
	ids := append([]string{}, f.ShopIDs...)
	if f.ShopID != "" {
		ids = append(ids, f.ShopID)
	}
	return dedupIDs(ids)
}

// Matches evaluates the filter in memory. Backends that cannot express a clause
// server side apply it here after fetching.
func (f Filter) Matches(r Rule) bool {
	if shops := f.Shops(); len(shops) > 0 && !containsID(shops, r.ShopID) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.RuleName), q) {
			return false
		}
	}
	if f.RuleType != nil && r.RuleType != *f.RuleType {
		return false
	}
	if f.IsActive != nil && r.IsActive != *f.IsActive {
		return false
	}
	if f.CartTotal != nil && !r.MatchesCartTotal(*f.CartTotal) {
		return false
	}
	return true
}

// SortByPriority orders rules by priority rank desc, then CreatedAt desc. Stable.
func SortByPriority(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		ri, rj := rules[i].Priority.Rank(), rules[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})
}

// Repository is the persistence port for rules.
//
// Storage:
// - Firestore collection: upsell_rules (docId = rule id)
// - Postgres table: upsell_rules
type Repository interface {
	// GetByID returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (Rule, error)

	// List returns rules matching filter sorted by SortByPriority.
	List(ctx context.Context, filter Filter) ([]Rule, error)

	Create(ctx context.Context, r Rule) (Rule, error)

	// Save overwrites an existing rule. ErrNotFound when absent.
	Save(ctx context.Context, r Rule) (Rule, error)

	// Delete is a hard delete. ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// IncrementStats applies delta server side without reading the document first.
	IncrementStats(ctx context.Context, id string, delta StatsDelta) error
}
