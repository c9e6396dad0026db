// internal/adapters/out/db/catalog_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	dbcommon "storefront/internal/adapters/out/db/common"
	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
)

// ProductCatalogPG reads the products table.
type ProductCatalogPG struct {
	DB *sql.DB
}

func NewProductCatalogPG(db *sql.DB) *ProductCatalogPG {
	return &ProductCatalogPG{DB: db}
}

var _ productdom.Catalog = (*ProductCatalogPG)(nil)

func (r *ProductCatalogPG) ListByIDs(ctx context.Context, shopID string, ids []string) ([]productdom.Product, error) {
	if len(ids) == 0 {
		return []productdom.Product{}, nil
	}
	const q = `
SELECT id, shop_id, name, icon_url, category_id, unit_price, discount_type, discount_value
FROM products
WHERE shop_id = $1 AND id = ANY($2)`

	rows, err := dbcommon.GetRunner(ctx, r.DB).QueryContext(ctx, q, strings.TrimSpace(shopID), pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]productdom.Product, 0, len(ids))
	for rows.Next() {
		var p productdom.Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.IconURL, &p.CategoryID, &p.UnitPrice, &p.DiscountType, &p.DiscountValue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ShopRepositoryPG reads the shops table.
type ShopRepositoryPG struct {
	DB *sql.DB
}

func NewShopRepositoryPG(db *sql.DB) *ShopRepositoryPG {
	return &ShopRepositoryPG{DB: db}
}

var _ shopdom.Repository = (*ShopRepositoryPG)(nil)

func (r *ShopRepositoryPG) ListByIDs(ctx context.Context, ids []string) ([]shopdom.Shop, error) {
	if len(ids) == 0 {
		return []shopdom.Shop{}, nil
	}
	rows, err := dbcommon.GetRunner(ctx, r.DB).QueryContext(ctx,
		`SELECT id, name, owner_id FROM shops WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]shopdom.Shop, 0, len(ids))
	for rows.Next() {
		var s shopdom.Shop
		if err := rows.Scan(&s.ID, &s.Name, &s.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ShopRepositoryPG) GetByOwnerID(ctx context.Context, ownerID string) (shopdom.Shop, error) {
	var s shopdom.Shop
	err := dbcommon.GetRunner(ctx, r.DB).QueryRowContext(ctx,
		`SELECT id, name, owner_id FROM shops WHERE owner_id = $1 ORDER BY id LIMIT 1`, strings.TrimSpace(ownerID),
	).Scan(&s.ID, &s.Name, &s.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return shopdom.Shop{}, shopdom.ErrNotFound
	}
	return s, err
}
