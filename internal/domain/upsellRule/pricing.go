// internal/domain/upsellRule/pricing.go
package upsellRule

import "math"

// RoundCents rounds to 2 decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplyDiscount reduces price by a flat amount or a percentage.
// The result is floored at 0, rounded to cents and never above price.
// Unknown types and non-positive values leave price unchanged.
func ApplyDiscount(price float64, t DiscountType, value float64) float64 {
	if price <= 0 || math.IsNaN(price) {
		return 0
	}
	if value <= 0 || math.IsNaN(value) {
		return price
	}

	var reduced float64
	switch t {
	case DiscountFlat:
		reduced = price - value
	case DiscountPercentage:
		reduced = price - price*value/100
	default:
		return price
	}

	if reduced < 0 {
		reduced = 0
	}
	out := RoundCents(reduced)
	if out > price {
		out = price
	}
	return out
}

// Price is the two-stage price of one offered product.
type Price struct {
	Unit     float64 `json:"unitPrice"`
	Base     float64 `json:"basePrice"`
	Final    float64 `json:"upsellFinalPrice"`
	Discount float64 `json:"upsellDiscount"`
}

// PriceFor applies the product's own discount, then the rule's discount.
// Final <= Base <= Unit holds for non-negative unit prices.
func (r Rule) PriceFor(unitPrice float64, ownType DiscountType, ownValue float64) Price {
	base := ApplyDiscount(unitPrice, ownType, ownValue)
	final := ApplyDiscount(base, r.DiscountType, r.DiscountValue)
	return Price{
		Unit:     unitPrice,
		Base:     base,
		Final:    final,
		Discount: RoundCents(base - final),
	}
}
