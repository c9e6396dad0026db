// internal/domain/shop/entity.go
package shop

import (
	"context"
	"errors"
)

// Shop is a tenant of the marketplace.
type Shop struct {
	ID      string `json:"id" firestore:"id"`
	Name    string `json:"name" firestore:"name"`
	OwnerID string `json:"ownerId" firestore:"ownerId"` // Firebase uid of the shop owner
}

var ErrNotFound = errors.New("shop: not found")

// Repository is a read port for shops.
type Repository interface {
	// ListByIDs returns the shops among ids. Unknown ids are absent.
	ListByIDs(ctx context.Context, ids []string) ([]Shop, error)

	// GetByOwnerID returns ErrNotFound when the uid owns no shop.
	GetByOwnerID(ctx context.Context, ownerID string) (Shop, error)
}
