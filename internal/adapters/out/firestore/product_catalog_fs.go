// internal/adapters/out/firestore/product_catalog_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	productdom "storefront/internal/domain/product"
)

// ProductCatalogFS reads the products collection (docId = product id).
type ProductCatalogFS struct {
	Client *firestore.Client
}

func NewProductCatalogFS(client *firestore.Client) *ProductCatalogFS {
	return &ProductCatalogFS{Client: client}
}

var _ productdom.Catalog = (*ProductCatalogFS)(nil)

func (r *ProductCatalogFS) col() *firestore.CollectionRef {
	return r.Client.Collection("products")
}

// ListByIDs batch-gets ids and keeps the existing documents of shopID.
func (r *ProductCatalogFS) ListByIDs(ctx context.Context, shopID string, ids []string) ([]productdom.Product, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("product_catalog_fs: firestore client is nil")
	}
	shopID = strings.TrimSpace(shopID)

	out := make([]productdom.Product, 0, len(ids))
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
			var p productdom.Product
			if err := snap.DataTo(&p); err != nil {
				return nil, err
			}
			p.ID = snap.Ref.ID
			if p.ShopID != shopID {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}
