// internal/domain/upsellRule/entity.go
package upsellRule

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// ===============================
// Types
// ===============================

// RuleType は upsell / cross-sell の区別
type RuleType string

const (
	RuleTypeUpsell    RuleType = "upsell"
	RuleTypeCrossSell RuleType = "cross-sell"
)

func IsValidRuleType(t RuleType) bool {
	switch t {
	case RuleTypeUpsell, RuleTypeCrossSell:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank orders priorities: high=3, medium=2, low=1, unknown=0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func IsValidPriority(p Priority) bool {
	return p.Rank() > 0
}

type DiscountType string

const (
	DiscountFlat       DiscountType = "flat"
	DiscountPercentage DiscountType = "percentage"
)

func IsValidDiscountType(t DiscountType) bool {
	switch t {
	case DiscountFlat, DiscountPercentage:
		return true
	default:
		return false
	}
}

// Conditions decide whether a rule is eligible for a cart.
// MaxCartValue = 0 means "no upper bound".
// Empty TriggerProducts matches any cart.
type Conditions struct {
	MinCartValue      float64  `json:"minCartValue" firestore:"minCartValue"`
	MaxCartValue      float64  `json:"maxCartValue" firestore:"maxCartValue"`
	TriggerProducts   []string `json:"triggerProducts" firestore:"triggerProducts"`
	TriggerCategories []string `json:"triggerCategories" firestore:"triggerCategories"`
}

// Stats are running counters updated by impressions and conversions.
type Stats struct {
	Impressions int64   `json:"impressions" firestore:"impressions"`
	Conversions int64   `json:"conversions" firestore:"conversions"`
	Revenue     float64 `json:"revenue" firestore:"revenue"`
}

// ConversionRate returns conversions/impressions*100 rounded to 2 decimals, 0 without impressions.
func (s Stats) ConversionRate() float64 {
	if s.Impressions <= 0 {
		return 0
	}
	return math.Round(float64(s.Conversions)/float64(s.Impressions)*100*100) / 100
}

// StatsDelta is an atomic increment applied to Stats.
type StatsDelta struct {
	Impressions int64
	Conversions int64
	Revenue     float64
}

func (d StatsDelta) IsZero() bool {
	return d.Impressions == 0 && d.Conversions == 0 && d.Revenue == 0
}

// Apply adds the delta to s (used by backends without server-side increments).
func (s Stats) Apply(d StatsDelta) Stats {
	s.Impressions += d.Impressions
	s.Conversions += d.Conversions
	s.Revenue = RoundCents(s.Revenue + d.Revenue)
	return s
}

// Rule is a per-shop upsell / cross-sell rule.
type Rule struct {
	ID              string       `json:"id" firestore:"id"`
	ShopID          string       `json:"shopId" firestore:"shopId"`
	RuleName        string       `json:"ruleName" firestore:"ruleName"`
	Description     string       `json:"description" firestore:"description"`
	RuleType        RuleType     `json:"ruleType" firestore:"ruleType"`
	Priority        Priority     `json:"priority" firestore:"priority"`
	DiscountType    DiscountType `json:"discountType" firestore:"discountType"`
	DiscountValue   float64      `json:"discountValue" firestore:"discountValue"`
	OfferedProducts []string     `json:"offeredProducts" firestore:"offeredProducts"`
	Conditions      Conditions   `json:"conditions" firestore:"conditions"`
	IsActive        bool         `json:"isActive" firestore:"isActive"`
	Stats           Stats        `json:"stats" firestore:"stats"`
	CreatedAt       time.Time    `json:"createdAt" firestore:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt" firestore:"updatedAt"`
}

// ===============================
// Errors
// ===============================

var (
	ErrInvalidID              = errors.New("upsellRule: invalid id")
	ErrInvalidShopID          = errors.New("upsellRule: invalid shopId")
	ErrInvalidRuleName        = errors.New("upsellRule: invalid ruleName")
	ErrInvalidDescription     = errors.New("upsellRule: invalid description")
	ErrInvalidRuleType        = errors.New("upsellRule: invalid ruleType")
	ErrInvalidPriority        = errors.New("upsellRule: invalid priority")
	ErrInvalidDiscountType    = errors.New("upsellRule: invalid discountType")
	ErrInvalidDiscountValue   = errors.New("upsellRule: invalid discountValue")
	ErrInvalidOfferedProducts = errors.New("upsellRule: invalid offeredProducts")
	ErrInvalidConditions      = errors.New("upsellRule: invalid conditions")
	ErrInvalidTimestamps      = errors.New("upsellRule: invalid timestamps")

	ErrProductNotOwned   = errors.New("upsellRule: product does not belong to shop")
	ErrProductNotOffered = errors.New("upsellRule: product is not offered by rule")

	ErrNotFound = errors.New("upsellRule: not found")
	// ErrInactive matches ErrNotFound via errors.Is.
	ErrInactive = fmt.Errorf("%w: rule is inactive", ErrNotFound)
)

// ===============================
// Policy
// ===============================

const (
	MaxRuleNameLength    = 200
	MaxDescriptionLength = 2000
)

// ===============================
// Constructors
// ===============================

// Fields is the owner-supplied part of a rule.
// IsActive nil defaults to true.
type Fields struct {
	RuleName        string
	Description     string
	RuleType        RuleType
	Priority        Priority
	DiscountType    DiscountType
	DiscountValue   float64
	OfferedProducts []string
	Conditions      Conditions
	IsActive        *bool
}

// New builds a validated rule with zero stats.
func New(id, shopID string, f Fields, now time.Time) (Rule, error) {
	now = now.UTC()

	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}

	prio := f.Priority
	if strings.TrimSpace(string(prio)) == "" {
		prio = PriorityMedium
	}

	r := Rule{
		ID:              strings.TrimSpace(id),
		ShopID:          strings.TrimSpace(shopID),
		RuleName:        strings.TrimSpace(f.RuleName),
		Description:     strings.TrimSpace(f.Description),
		RuleType:        RuleType(strings.TrimSpace(string(f.RuleType))),
		Priority:        Priority(strings.TrimSpace(string(prio))),
		DiscountType:    DiscountType(strings.TrimSpace(string(f.DiscountType))),
		DiscountValue:   f.DiscountValue,
		OfferedProducts: dedupIDs(f.OfferedProducts),
		Conditions:      normalizeConditions(f.Conditions),
		IsActive:        active,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// ===============================
// Patch
// ===============================

// Patch is a shallow partial update. Conditions, when present, replace the whole sub-document.
type Patch struct {
	RuleName        *string
	Description     *string
	RuleType        *RuleType
	Priority        *Priority
	DiscountType    *DiscountType
	DiscountValue   *float64
	OfferedProducts *[]string
	Conditions      *Conditions
	IsActive        *bool
}

func (p Patch) IsEmpty() bool {
	return p.RuleName == nil &&
		p.Description == nil &&
		p.RuleType == nil &&
		p.Priority == nil &&
		p.DiscountType == nil &&
		p.DiscountValue == nil &&
		p.OfferedProducts == nil &&
		p.Conditions == nil &&
		p.IsActive == nil
}

// ProductIDs returns the product references carried by the patch that need ownership checks.
func (p Patch) ProductIDs() []string {
	var ids []string
	if p.OfferedProducts != nil {
		ids = append(ids, *p.OfferedProducts...)
	}
	if p.Conditions != nil {
		ids = append(ids, p.Conditions.TriggerProducts...)
	}
	return dedupIDs(ids)
}

// ApplyPatch merges p onto r and re-validates. r is left untouched on error.
func (r *Rule) ApplyPatch(p Patch, now time.Time) error {
	next := *r
	next.OfferedProducts = append([]string(nil), r.OfferedProducts...)

	if p.RuleName != nil {
		next.RuleName = strings.TrimSpace(*p.RuleName)
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	if p.RuleType != nil {
		next.RuleType = RuleType(strings.TrimSpace(string(*p.RuleType)))
	}
	if p.Priority != nil {
		next.Priority = Priority(strings.TrimSpace(string(*p.Priority)))
	}
	if p.DiscountType != nil {
		next.DiscountType = DiscountType(strings.TrimSpace(string(*p.DiscountType)))
	}
	if p.DiscountValue != nil {
		next.DiscountValue = *p.DiscountValue
	}
	if p.OfferedProducts != nil {
		next.OfferedProducts = dedupIDs(*p.OfferedProducts)
	}
	if p.Conditions != nil {
		next.Conditions = normalizeConditions(*p.Conditions)
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	next.UpdatedAt = now.UTC()

	if err := next.validate(); err != nil {
		return err
	}
	*r = next
	return nil
}

// Toggle flips IsActive.
func (r *Rule) Toggle(now time.Time) {
	r.IsActive = !r.IsActive
	r.UpdatedAt = now.UTC()
}

// ===============================
// Queries
// ===============================

// Offers reports whether productID is one of the offered products.
func (r Rule) Offers(productID string) bool {
	return containsID(r.OfferedProducts, strings.TrimSpace(productID))
}

// TriggeredBy reports whether the rule applies when scoped to productID.
func (r Rule) TriggeredBy(productID string) bool {
	if len(r.Conditions.TriggerProducts) == 0 {
		return true
	}
	return containsID(r.Conditions.TriggerProducts, strings.TrimSpace(productID))
}

// MatchesCartTotal applies the min/max cart value bounds.
func (r Rule) MatchesCartTotal(total float64) bool {
	if r.Conditions.MinCartValue > total {
		return false
	}
	return r.Conditions.MaxCartValue == 0 || r.Conditions.MaxCartValue >= total
}

// ProductIDs returns the distinct offered + trigger product ids.
func (r Rule) ProductIDs() []string {
	ids := make([]string, 0, len(r.OfferedProducts)+len(r.Conditions.TriggerProducts))
	ids = append(ids, r.OfferedProducts...)
	ids = append(ids, r.Conditions.TriggerProducts...)
	return dedupIDs(ids)
}

// ===============================
// Validation
// ===============================

func (r Rule) validate() error {
	if r.ID == "" {
		return ErrInvalidID
	}
	if r.ShopID == "" {
		return ErrInvalidShopID
	}
	if n := utf8.RuneCountInString(r.RuleName); n == 0 || n > MaxRuleNameLength {
		return ErrInvalidRuleName
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	if !IsValidRuleType(r.RuleType) {
		return ErrInvalidRuleType
	}
	if !IsValidPriority(r.Priority) {
		return ErrInvalidPriority
	}
	if !IsValidDiscountType(r.DiscountType) {
		return ErrInvalidDiscountType
	}
	if math.IsNaN(r.DiscountValue) || math.IsInf(r.DiscountValue, 0) || r.DiscountValue < 0 {
		return ErrInvalidDiscountValue
	}
	if r.DiscountType == DiscountPercentage && r.DiscountValue > 100 {
		return ErrInvalidDiscountValue
	}
	if len(r.OfferedProducts) == 0 {
		return ErrInvalidOfferedProducts
	}
	c := r.Conditions
	if c.MinCartValue < 0 || c.MaxCartValue < 0 {
		return ErrInvalidConditions
	}
	if c.MaxCartValue != 0 && c.MaxCartValue < c.MinCartValue {
		return ErrInvalidConditions
	}
	if r.CreatedAt.IsZero() || r.UpdatedAt.IsZero() || r.UpdatedAt.Before(r.CreatedAt) {
		return ErrInvalidTimestamps
	}
	return nil
}

// ===============================
// Helpers
// ===============================

func normalizeConditions(c Conditions) Conditions {
	return Conditions{
		MinCartValue:      c.MinCartValue,
		MaxCartValue:      c.MaxCartValue,
		TriggerProducts:   dedupIDs(c.TriggerProducts),
		TriggerCategories: dedupIDs(c.TriggerCategories),
	}
}

// dedupIDs trims, drops empties and removes duplicates while keeping first-seen order.
func dedupIDs(xs []string) []string {
	out := make([]string, 0, len(xs))
	seen := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

func containsID(xs []string, id string) bool {
	if id == "" {
		return false
	}
	for _, x := range xs {
		if x == id {
			return true
		}
	}
	return false
}
