// internal/adapters/out/firestore/cart_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	cartdom "storefront/internal/domain/cart"
)

// CartRepositoryFS implements cart.Repository using Firestore.
//
// Collection design:
// - collection: carts
// - docId: cart id
// - lookup fields: customerId, sessionId
//
// TTL:
// - Configure Firestore TTL on "expiresAt".
type CartRepositoryFS struct {
	Client *firestore.Client
}

func NewCartRepositoryFS(client *firestore.Client) *CartRepositoryFS {
	return &CartRepositoryFS{Client: client}
}

var _ cartdom.Repository = (*CartRepositoryFS)(nil)

func (r *CartRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("carts")
}

// GetByIdentity prefers the customer id; a session lookup only matches guest carts.
func (r *CartRepositoryFS) GetByIdentity(ctx context.Context, id cartdom.Identity) (*cartdom.Cart, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("cart_repository_fs: firestore client is nil")
	}
	id = id.Normalize()
	if id.IsZero() {
		return nil, cartdom.ErrNotFound
	}

	var q firestore.Query
	if id.CustomerID != "" {
		q = r.col().Where("customerId", "==", id.CustomerID)
	} else {
		q = r.col().Where("sessionId", "==", id.SessionID).Where("customerId", "==", "")
	}

	it := q.OrderBy("updatedAt", firestore.Desc).Limit(1).Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return nil, cartdom.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc, err := cartDocFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	c := doc.toDomain()
	// docId が source of truth
	c.ID = snap.Ref.ID
	return c, nil
}

// Save overwrites the full document by docId = cart.ID.
func (r *CartRepositoryFS) Save(ctx context.Context, c *cartdom.Cart) error {
	if r == nil || r.Client == nil {
		return errors.New("cart_repository_fs: firestore client is nil")
	}
	if c == nil {
		return errors.New("cart_repository_fs: cart is nil")
	}
	cid := strings.TrimSpace(c.ID)
	if cid == "" {
		return errors.New("cart_repository_fs: Save requires cart.ID as docId")
	}

	doc := cartDocFromDomain(c)
	ref := r.col().Doc(cid)

	if tx := txFromCtx(ctx); tx != nil {
		return tx.Set(ref, doc)
	}
	_, err := ref.Set(ctx, doc)
	return err
}

// -----------------------------------------
// Firestore DTO
// -----------------------------------------

type cartDoc struct {
	CustomerID  string        `firestore:"customerId"`
	SessionID   string        `firestore:"sessionId"`
	Items       []cartItemDoc `firestore:"items"`
	TotalAmount float64       `firestore:"totalAmount"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
	ExpiresAt time.Time `firestore:"expiresAt"`
}

type cartItemDoc struct {
	ID                   string               `firestore:"id"`
	ProductID            string               `firestore:"productId"`
	ShopID               string               `firestore:"shopId"`
	Quantity             int                  `firestore:"quantity"`
	PriceAtAddition      float64              `firestore:"priceAtAddition"`
	UpsellRuleApplied    *cartdom.AppliedRule `firestore:"upsellRuleApplied"`
	CrossSellRuleApplied *cartdom.AppliedRule `firestore:"crossSellRuleApplied"`
}

func cartDocFromSnapshot(snap *firestore.DocumentSnapshot) (cartDoc, error) {
	if snap == nil {
		return cartDoc{}, errors.New("cart_repository_fs: snapshot is nil")
	}
	var d cartDoc
	if err := snap.DataTo(&d); err != nil {
		return cartDoc{}, err
	}
	return d, nil
}

func cartDocFromDomain(c *cartdom.Cart) cartDoc {
	items := make([]cartItemDoc, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemDoc{
			ID:                   it.ID,
			ProductID:            it.ProductID,
			ShopID:               it.ShopID,
			Quantity:             it.Quantity,
			PriceAtAddition:      it.PriceAtAddition,
			UpsellRuleApplied:    it.UpsellRuleApplied,
			CrossSellRuleApplied: it.CrossSellRuleApplied,
		})
	}
	return cartDoc{
		CustomerID:  c.CustomerID,
		SessionID:   c.SessionID,
		Items:       items,
		TotalAmount: c.TotalAmount,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
		ExpiresAt:   c.ExpiresAt.UTC(),
	}
}

func (d cartDoc) toDomain() *cartdom.Cart {
	items := make([]cartdom.CartItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, cartdom.CartItem{
			ID:                   it.ID,
			ProductID:            it.ProductID,
			ShopID:               it.ShopID,
			Quantity:             it.Quantity,
			PriceAtAddition:      it.PriceAtAddition,
			UpsellRuleApplied:    it.UpsellRuleApplied,
			CrossSellRuleApplied: it.CrossSellRuleApplied,
		})
	}
	return &cartdom.Cart{
		CustomerID:  d.CustomerID,
		SessionID:   d.SessionID,
		Items:       items,
		TotalAmount: d.TotalAmount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		ExpiresAt:   d.ExpiresAt,
	}
}
