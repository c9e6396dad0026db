// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidCart     = errors.New("cart: invalid")
	ErrInvalidItem     = errors.New("cart: invalid item")
	ErrNotFound        = errors.New("cart: not found")
	ErrItemNotFound    = errors.New("cart: item not found")
	ErrBothRulesOnLine = errors.New("cart: line carries both upsell and cross-sell snapshots")
)

// DefaultCartTTL is the inactivity window after which the cart becomes eligible for auto deletion
// (Firestore TTL is configured on expiresAt).
const DefaultCartTTL = 7 * 24 * time.Hour

// ItemNotFoundError reports the searched reference and the ids present in the cart.
type ItemNotFoundError struct {
	SearchedID string
	Candidates []string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf(
		"cart: item not found: searched=%q candidates=[%s]",
		e.SearchedID, strings.Join(e.Candidates, ", "),
	)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// AppliedRule is the snapshot of a rule taken when its offer was accepted.
// OriginalProductID is only set for upsells.
type AppliedRule struct {
	RuleID            string    `json:"ruleId" firestore:"ruleId"`
	RuleName          string    `json:"ruleName" firestore:"ruleName"`
	DiscountType      string    `json:"discountType" firestore:"discountType"`
	DiscountValue     float64   `json:"discountValue" firestore:"discountValue"`
	OriginalProductID string    `json:"originalProductId,omitempty" firestore:"originalProductId,omitempty"`
	AppliedAt         time.Time `json:"appliedAt" firestore:"appliedAt"`
}

// CartItem is one line of a cart.
// PriceAtAddition is the unit price locked in when the line was created or an offer applied.
type CartItem struct {
	ID                   string       `json:"id" firestore:"id"`
	ProductID            string       `json:"productId" firestore:"productId"`
	ShopID               string       `json:"shopId" firestore:"shopId"`
	Quantity             int          `json:"quantity" firestore:"quantity"`
	PriceAtAddition      float64      `json:"priceAtAddition" firestore:"priceAtAddition"`
	UpsellRuleApplied    *AppliedRule `json:"upsellRuleApplied,omitempty" firestore:"upsellRuleApplied,omitempty"`
	CrossSellRuleApplied *AppliedRule `json:"crossSellRuleApplied,omitempty" firestore:"crossSellRuleApplied,omitempty"`
}

// Cart belongs to a customer (authenticated) or a guest session.
//
// NOTE:
// - TotalAmount is only refreshed by Recalculate.
// - ExpiresAt is refreshed on each mutation (Firestore TTL).
type Cart struct {
	ID          string     `json:"id" firestore:"id"`
	CustomerID  string     `json:"customerId,omitempty" firestore:"customerId"`
	SessionID   string     `json:"sessionId,omitempty" firestore:"sessionId"`
	Items       []CartItem `json:"items" firestore:"items"`
	TotalAmount float64    `json:"totalAmount" firestore:"totalAmount"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt" firestore:"expiresAt"`
}

// NewCart creates a cart for a customer or a session (at least one is required).
func NewCart(id, customerID, sessionID string, items []CartItem, now time.Time) (*Cart, error) {
	c := &Cart{
		ID:         strings.TrimSpace(id),
		CustomerID: strings.TrimSpace(customerID),
		SessionID:  strings.TrimSpace(sessionID),
		Items:      cloneItems(items),
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(DefaultCartTTL),
	}
	c.Recalculate(now)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// ShopIDs returns the distinct shop ids of the lines in first-seen order.
func (c *Cart) ShopIDs() []string {
	if c == nil {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ShopID == "" {
			continue
		}
		if _, ok := seen[it.ShopID]; ok {
			continue
		}
		seen[it.ShopID] = struct{}{}
		out = append(out, it.ShopID)
	}
	return out
}

// ProductIDs returns the product id of every line.
func (c *Cart) ProductIDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.ProductID)
	}
	return out
}

// IndexOfProduct returns the first line holding productID, or -1.
func (c *Cart) IndexOfProduct(productID string) int {
	if c == nil {
		return -1
	}
	pid := strings.TrimSpace(productID)
	for i := range c.Items {
		if c.Items[i].ProductID == pid {
			return i
		}
	}
	return -1
}

// LocateLine finds a line by product id first, then by line id.
func (c *Cart) LocateLine(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if idx := c.IndexOfProduct(ref); idx >= 0 {
		return idx, nil
	}
	if c != nil && ref != "" {
		for i := range c.Items {
			if c.Items[i].ID == ref {
				return i, nil
			}
		}
	}
	return -1, c.itemNotFound(ref)
}

// AddItem appends a line, or adds quantity to the existing line of the same product.
func (c *Cart) AddItem(it CartItem, now time.Time) error {
	if c == nil {
		return ErrInvalidCart
	}
	it = normalizeItem(it)
	if err := validateItem(it); err != nil {
		return err
	}

	if idx := c.IndexOfProduct(it.ProductID); idx >= 0 {
		c.Items[idx].Quantity += it.Quantity
	} else {
		c.Items = append(c.Items, it)
	}

	c.touch(now)
	return c.validate()
}

// ReplaceLine overwrites the line at idx in place.
func (c *Cart) ReplaceLine(idx int, it CartItem, now time.Time) error {
	if c == nil || idx < 0 || idx >= len(c.Items) {
		return ErrInvalidCart
	}
	it = normalizeItem(it)
	if err := validateItem(it); err != nil {
		return err
	}
	c.Items[idx] = it
	c.touch(now)
	return c.validate()
}

// IncrementLine adds delta to the line quantity and sets its cross-sell snapshot.
// Any upsell snapshot on the line is cleared.
func (c *Cart) IncrementLine(idx, delta int, crossSell *AppliedRule, now time.Time) error {
	if c == nil || idx < 0 || idx >= len(c.Items) || delta <= 0 {
		return ErrInvalidCart
	}
	line := &c.Items[idx]
	line.Quantity += delta
	line.CrossSellRuleApplied = cloneApplied(crossSell)
	line.UpsellRuleApplied = nil
	c.touch(now)
	return c.validate()
}

// ClearAppliedRules strips both snapshots from the line of productID.
// It does not change the price or quantity.
func (c *Cart) ClearAppliedRules(productID string, now time.Time) error {
	idx := c.IndexOfProduct(productID)
	if idx < 0 {
		return c.itemNotFound(strings.TrimSpace(productID))
	}
	line := &c.Items[idx]
	if line.UpsellRuleApplied == nil && line.CrossSellRuleApplied == nil {
		return nil
	}
	line.UpsellRuleApplied = nil
	line.CrossSellRuleApplied = nil
	c.touch(now)
	return c.validate()
}

// Recalculate sets TotalAmount = sum(priceAtAddition * quantity).
func (c *Cart) Recalculate(now time.Time) {
	if c == nil {
		return
	}
	var total float64
	for _, it := range c.Items {
		total += it.PriceAtAddition * float64(it.Quantity)
	}
	c.TotalAmount = math.Round(total*100) / 100
	c.touch(now)
}

func (c *Cart) touch(now time.Time) {
	if now.IsZero() {
		return
	}
	if now.After(c.UpdatedAt) || c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	c.ExpiresAt = c.UpdatedAt.Add(DefaultCartTTL)
}

func (c *Cart) itemNotFound(ref string) error {
	var ids []string
	if c != nil {
		ids = make([]string, 0, len(c.Items)*2)
		for _, it := range c.Items {
			ids = append(ids, it.ProductID)
			if it.ID != "" {
				ids = append(ids, it.ID)
			}
		}
	}
	return &ItemNotFoundError{SearchedID: ref, Candidates: ids}
}

func (c *Cart) validate() error {
	if c == nil {
		return ErrInvalidCart
	}
	if c.ID == "" {
		return ErrInvalidCart
	}
	if c.CustomerID == "" && c.SessionID == "" {
		return ErrInvalidCart
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() || c.ExpiresAt.IsZero() {
		return ErrInvalidCart
	}
	if c.UpdatedAt.Before(c.CreatedAt) || c.ExpiresAt.Before(c.UpdatedAt) {
		return ErrInvalidCart
	}
	for _, it := range c.Items {
		if err := validateItem(it); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------
// Helpers
// ----------------------------

func validateItem(it CartItem) error {
	if it.ProductID == "" || it.ShopID == "" || it.Quantity < 1 {
		return ErrInvalidItem
	}
	if it.PriceAtAddition < 0 || math.IsNaN(it.PriceAtAddition) {
		return ErrInvalidItem
	}
	if it.UpsellRuleApplied != nil && it.CrossSellRuleApplied != nil {
		return ErrBothRulesOnLine
	}
	return nil
}

func normalizeItem(it CartItem) CartItem {
	it.ID = strings.TrimSpace(it.ID)
	it.ProductID = strings.TrimSpace(it.ProductID)
	it.ShopID = strings.TrimSpace(it.ShopID)
	it.UpsellRuleApplied = cloneApplied(it.UpsellRuleApplied)
	it.CrossSellRuleApplied = cloneApplied(it.CrossSellRuleApplied)
	return it
}

func cloneApplied(a *AppliedRule) *AppliedRule {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func cloneItems(src []CartItem) []CartItem {
	out := make([]CartItem, 0, len(src))
	for _, it := range src {
		out = append(out, normalizeItem(it))
	}
	return out
}
