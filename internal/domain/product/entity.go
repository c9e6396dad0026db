// internal/domain/product/entity.go
package product

import (
	"context"
	"errors"
)

// Product is the catalog view this service needs: price, own discount and display fields.
// The catalog is owned by another service; this package only reads it.
type Product struct {
	ID            string  `json:"id" firestore:"id"`
	ShopID        string  `json:"shopId" firestore:"shopId"`
	Name          string  `json:"name" firestore:"name"`
	IconURL       string  `json:"iconUrl" firestore:"iconUrl"`
	CategoryID    string  `json:"categoryId,omitempty" firestore:"categoryId"`
	UnitPrice     float64 `json:"unitPrice" firestore:"unitPrice"`
	DiscountType  string  `json:"discountType,omitempty" firestore:"discountType"`
	DiscountValue float64 `json:"discountValue" firestore:"discountValue"`
}

var ErrNotFound = errors.New("product: not found")

// Catalog looks products up by id with a shop-ownership filter.
type Catalog interface {
	// ListByIDs returns the products among ids that belong to shopID.
	// Unknown or foreign ids are silently absent from the result.
	ListByIDs(ctx context.Context, shopID string, ids []string) ([]Product, error)
}

// ByID indexes products by id.
func ByID(ps []Product) map[string]Product {
	m := make(map[string]Product, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}
