// internal/adapters/out/db/cart_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	dbcommon "storefront/internal/adapters/out/db/common"
	cartdom "storefront/internal/domain/cart"
)

// CartRepositoryPG stores carts in carts + cart_items.
// Applied-rule snapshots are jsonb columns on cart_items; position keeps line order.
type CartRepositoryPG struct {
	DB *sql.DB
}

func NewCartRepositoryPG(db *sql.DB) *CartRepositoryPG {
	return &CartRepositoryPG{DB: db}
}

var _ cartdom.Repository = (*CartRepositoryPG)(nil)

func (r *CartRepositoryPG) GetByIdentity(ctx context.Context, id cartdom.Identity) (*cartdom.Cart, error) {
	id = id.Normalize()
	if id.IsZero() {
		return nil, cartdom.ErrNotFound
	}

	var (
		where string
		arg   string
	)
	if id.CustomerID != "" {
		where, arg = "customer_id = $1", id.CustomerID
	} else {
		where, arg = "session_id = $1 AND customer_id = ''", id.SessionID
	}

	q := fmt.Sprintf(`
SELECT id, customer_id, session_id, total_amount, created_at, updated_at, expires_at
FROM carts
WHERE %s
ORDER BY updated_at DESC
LIMIT 1`, where)

	run := dbcommon.GetRunner(ctx, r.DB)

	var c cartdom.Cart
	if err := run.QueryRowContext(ctx, q, arg).Scan(
		&c.ID, &c.CustomerID, &c.SessionID, &c.TotalAmount, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cartdom.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt, c.UpdatedAt, c.ExpiresAt = c.CreatedAt.UTC(), c.UpdatedAt.UTC(), c.ExpiresAt.UTC()

	items, err := r.loadItems(ctx, run, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (r *CartRepositoryPG) loadItems(ctx context.Context, run dbcommon.Runner, cartID string) ([]cartdom.CartItem, error) {
	const q = `
SELECT line_id, product_id, shop_id, quantity, price_at_addition, upsell_rule, cross_sell_rule
FROM cart_items
WHERE cart_id = $1
ORDER BY position ASC`

	rows, err := run.QueryContext(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]cartdom.CartItem, 0)
	for rows.Next() {
		var (
			it            cartdom.CartItem
			upsell, cross []byte
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ShopID, &it.Quantity, &it.PriceAtAddition, &upsell, &cross); err != nil {
			return nil, err
		}
		if it.UpsellRuleApplied, err = decodeApplied(upsell); err != nil {
			return nil, err
		}
		if it.CrossSellRuleApplied, err = decodeApplied(cross); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Save upserts the cart row and rewrites its lines in one transaction
// (the caller's when ctx carries one).
func (r *CartRepositoryPG) Save(ctx context.Context, c *cartdom.Cart) error {
	if c == nil {
		return errors.New("cart_repository_pg: cart is nil")
	}
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("cart_repository_pg: Save requires cart.ID")
	}

	return dbcommon.WithTx(ctx, r.DB, func(ctx context.Context) error {
		run := dbcommon.GetRunner(ctx, r.DB)

		const upsertCart = `
INSERT INTO carts (id, customer_id, session_id, total_amount, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  customer_id = EXCLUDED.customer_id,
  session_id = EXCLUDED.session_id,
  total_amount = EXCLUDED.total_amount,
  updated_at = EXCLUDED.updated_at,
  expires_at = EXCLUDED.expires_at`
		if _, err := run.ExecContext(ctx, upsertCart,
			c.ID, c.CustomerID, c.SessionID, c.TotalAmount,
			c.CreatedAt.UTC(), c.UpdatedAt.UTC(), c.ExpiresAt.UTC(),
		); err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		if _, err := run.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}

		const insertItem = `
INSERT INTO cart_items (cart_id, line_id, position, product_id, shop_id, quantity, price_at_addition, upsell_rule, cross_sell_rule)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		for i, it := range c.Items {
			upsell, err := encodeApplied(it.UpsellRuleApplied)
			if err != nil {
				return err
			}
			cross, err := encodeApplied(it.CrossSellRuleApplied)
			if err != nil {
				return err
			}
			if _, err := run.ExecContext(ctx, insertItem,
				c.ID, it.ID, i, it.ProductID, it.ShopID, it.Quantity, it.PriceAtAddition, upsell, cross,
			); err != nil {
				return fmt.Errorf("insert cart item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// jsonb NULL <-> nil snapshot
func encodeApplied(a *cartdom.AppliedRule) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode applied rule: %w", err)
	}
	return string(b), nil
}

func decodeApplied(raw []byte) (*cartdom.AppliedRule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a cartdom.AppliedRule
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode applied rule: %w", err)
	}
	a.AppliedAt = a.AppliedAt.UTC()
	return &a, nil
}

