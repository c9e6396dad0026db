// internal/application/usecase/upsell_offer.go
package usecase

import (
	"context"

	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

// OfferedProduct is one offered product priced for display.
type OfferedProduct struct {
	ProductID        string  `json:"productId"`
	Name             string  `json:"name"`
	IconURL          string  `json:"iconUrl"`
	UnitPrice        float64 `json:"unitPrice"`
	BasePrice        float64 `json:"basePrice"`
	UpsellFinalPrice float64 `json:"upsellFinalPrice"`
	UpsellDiscount   float64 `json:"upsellDiscount"`
	DiscountType     string  `json:"discountType"`
	DiscountValue    float64 `json:"discountValue"`
}

// RuleOffer is a rule together with its priced products.
type RuleOffer struct {
	RuleID        string           `json:"ruleId"`
	RuleName      string           `json:"ruleName"`
	Description   string           `json:"description"`
	RuleType      string           `json:"ruleType"`
	Priority      string           `json:"priority"`
	DiscountType  string           `json:"discountType"`
	DiscountValue float64          `json:"discountValue"`
	Products      []OfferedProduct `json:"products"`
}

// ShopOffers groups the offers of one shop by rule type.
type ShopOffers struct {
	ShopID    string      `json:"shopId"`
	ShopName  string      `json:"shopName"`
	Upsell    []RuleOffer `json:"upsell"`
	CrossSell []RuleOffer `json:"crossSell"`
}

// CartOffers is the evaluation result keyed by shop id.
type CartOffers struct {
	Shops      map[string]ShopOffers `json:"shops"`
	TotalRules int                   `json:"totalRules"`
}

func emptyCartOffers() CartOffers {
	return CartOffers{Shops: map[string]ShopOffers{}}
}

// RuleIDs lists every rule in the result (for impression tracking).
func (o CartOffers) RuleIDs() []string {
	ids := make([]string, 0, o.TotalRules)
	for _, s := range o.Shops {
		for _, r := range s.Upsell {
			ids = append(ids, r.RuleID)
		}
		for _, r := range s.CrossSell {
			ids = append(ids, r.RuleID)
		}
	}
	return ids
}

// OfferBuilder prices offered products of rules.
type OfferBuilder struct {
	icons IconURLResolver
}

func NewOfferBuilder(icons IconURLResolver) *OfferBuilder {
	return &OfferBuilder{icons: icons}
}

// Build prices r.OfferedProducts in rule order. Products absent from catalog are skipped;
// ok is false when none remain.
func (b *OfferBuilder) Build(ctx context.Context, r ruledom.Rule, catalog map[string]productdom.Product) (RuleOffer, bool) {
	out := RuleOffer{
		RuleID:        r.ID,
		RuleName:      r.RuleName,
		Description:   r.Description,
		RuleType:      string(r.RuleType),
		Priority:      string(r.Priority),
		DiscountType:  string(r.DiscountType),
		DiscountValue: r.DiscountValue,
		Products:      make([]OfferedProduct, 0, len(r.OfferedProducts)),
	}

	for _, pid := range r.OfferedProducts {
		p, ok := catalog[pid]
		if !ok {
			continue
		}
		price := r.PriceFor(p.UnitPrice, ruledom.DiscountType(p.DiscountType), p.DiscountValue)

		icon := p.IconURL
		if b != nil && b.icons != nil && icon != "" {
			icon = b.icons.ResolveIconURL(ctx, icon)
		}

		out.Products = append(out.Products, OfferedProduct{
			ProductID:        p.ID,
			Name:             p.Name,
			IconURL:          icon,
			UnitPrice:        price.Unit,
			BasePrice:        price.Base,
			UpsellFinalPrice: price.Final,
			UpsellDiscount:   price.Discount,
			DiscountType:     string(r.DiscountType),
			DiscountValue:    r.DiscountValue,
		})
	}
	return out, len(out.Products) > 0
}

// OfferedProductIDs collects the distinct offered product ids of rules.
func OfferedProductIDs(rules []ruledom.Rule) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range rules {
		for _, id := range r.OfferedProducts {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
