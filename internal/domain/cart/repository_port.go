// internal/domain/cart/repository_port.go
package cart

import (
	"context"
	"strings"
)

// Identity selects a cart: an authenticated customer, or a guest session.
// CustomerID wins when both are set.
type Identity struct {
	CustomerID string
	SessionID  string
}

func (i Identity) Normalize() Identity {
	return Identity{
		CustomerID: strings.TrimSpace(i.CustomerID),
		SessionID:  strings.TrimSpace(i.SessionID),
	}
}

func (i Identity) IsZero() bool {
	n := i.Normalize()
	return n.CustomerID == "" && n.SessionID == ""
}

// Matches reports whether c belongs to i.
func (i Identity) Matches(c *Cart) bool {
	n := i.Normalize()
	if c == nil {
		return false
	}
	if n.CustomerID != "" {
		return c.CustomerID == n.CustomerID
	}
	return n.SessionID != "" && c.SessionID == n.SessionID && c.CustomerID == ""
}

// Repository is a persistence port for Cart.
//
// Storage:
// - Firestore collection: carts (docId = cart id, indexed on customerId / sessionId)
// - Postgres tables: carts, cart_items
//
// TTL: configure Firestore TTL on "expiresAt".
type Repository interface {
	// GetByIdentity returns (nil, ErrNotFound) when the identity has no cart.
	GetByIdentity(ctx context.Context, id Identity) (*Cart, error)

	// Save creates or fully replaces the cart, items included.
	Save(ctx context.Context, c *Cart) error
}
