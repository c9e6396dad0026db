// internal/adapters/out/firestore/shop_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	shopdom "storefront/internal/domain/shop"
)

// ShopRepositoryFS reads the shops collection (docId = shop id).
type ShopRepositoryFS struct {
	Client *firestore.Client
}

func NewShopRepositoryFS(client *firestore.Client) *ShopRepositoryFS {
	return &ShopRepositoryFS{Client: client}
}

var _ shopdom.Repository = (*ShopRepositoryFS)(nil)

func (r *ShopRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection("shops")
}

func (r *ShopRepositoryFS) ListByIDs(ctx context.Context, ids []string) ([]shopdom.Shop, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("shop_repository_fs: firestore client is nil")
	}

	var out []shopdom.Shop
	for _, chunk := range chunkIDs(ids, inQueryLimit) {
		refs := make([]*firestore.DocumentRef, 0, len(chunk))
		for _, id := range chunk {
			refs = append(refs, r.col().Doc(id))
		}
		snaps, err := r.Client.GetAll(ctx, refs)
		if err != nil {
			return nil, err
		}
		for _, snap := range snaps {
			if snap == nil || !snap.Exists() {
				continue
			}
			s, err := shopFromSnapshot(snap)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *ShopRepositoryFS) GetByOwnerID(ctx context.Context, ownerID string) (shopdom.Shop, error) {
	if r == nil || r.Client == nil {
		return shopdom.Shop{}, errors.New("shop_repository_fs: firestore client is nil")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return shopdom.Shop{}, shopdom.ErrNotFound
	}

	it := r.col().Where("ownerId", "==", ownerID).Limit(1).Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return shopdom.Shop{}, shopdom.ErrNotFound
	}
	if err != nil {
		return shopdom.Shop{}, err
	}
	return shopFromSnapshot(snap)
}

func shopFromSnapshot(snap *firestore.DocumentSnapshot) (shopdom.Shop, error) {
	var s shopdom.Shop
	if err := snap.DataTo(&s); err != nil {
		return shopdom.Shop{}, err
	}
	s.ID = snap.Ref.ID
	return s, nil
}
