// internal/adapters/out/memory/upsell_rule_repository_mem.go
package memory

import (
	"context"
	"sync"

	ruledom "storefront/internal/domain/upsellRule"
)

// UpsellRuleRepositoryMem keeps rules in a map (dev / tests).
type UpsellRuleRepositoryMem struct {
	mu    sync.RWMutex
	rules map[string]ruledom.Rule
}

func NewUpsellRuleRepositoryMem() *UpsellRuleRepositoryMem {
	return &UpsellRuleRepositoryMem{rules: map[string]ruledom.Rule{}}
}

var _ ruledom.Repository = (*UpsellRuleRepositoryMem)(nil)

func (r *UpsellRuleRepositoryMem) GetByID(_ context.Context, id string) (ruledom.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}
	return cloneRule(rule), nil
}

func (r *UpsellRuleRepositoryMem) List(_ context.Context, f ruledom.Filter) ([]ruledom.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ruledom.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if f.Matches(rule) {
			out = append(out, cloneRule(rule))
		}
	}
	ruledom.SortByPriority(out)
	return out, nil
}

func (r *UpsellRuleRepositoryMem) Create(_ context.Context, rule ruledom.Rule) (ruledom.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; exists {
		return ruledom.Rule{}, ErrConflict
	}
	r.rules[rule.ID] = cloneRule(rule)
	return cloneRule(rule), nil
}

func (r *UpsellRuleRepositoryMem) Save(_ context.Context, rule ruledom.Rule) (ruledom.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rules[rule.ID]
	if !ok {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}
	// stats are owned by IncrementStats
	rule.Stats = cur.Stats
	r.rules[rule.ID] = cloneRule(rule)
	return cloneRule(rule), nil
}

func (r *UpsellRuleRepositoryMem) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return ruledom.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

func (r *UpsellRuleRepositoryMem) IncrementStats(_ context.Context, id string, d ruledom.StatsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return ruledom.ErrNotFound
	}
	rule.Stats = rule.Stats.Apply(d)
	r.rules[id] = rule
	return nil
}

func cloneRule(r ruledom.Rule) ruledom.Rule {
	r.OfferedProducts = append([]string(nil), r.OfferedProducts...)
	r.Conditions.TriggerProducts = append([]string(nil), r.Conditions.TriggerProducts...)
	r.Conditions.TriggerCategories = append([]string(nil), r.Conditions.TriggerCategories...)
	return r
}
