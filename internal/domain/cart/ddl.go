package cart

// CartsTableDDL holds carts and their ordered lines.
const CartsTableDDL = `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL DEFAULT '',
  session_id TEXT NOT NULL DEFAULT '',
  total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_carts_customer ON carts (customer_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_carts_session ON carts (session_id, updated_at DESC);
`

const CartItemsTableDDL = `
CREATE TABLE IF NOT EXISTS cart_items (
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  line_id TEXT NOT NULL,
  position INT NOT NULL,
  product_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  quantity INT NOT NULL CHECK (quantity >= 1),
  price_at_addition NUMERIC(12,2) NOT NULL,
  upsell_rule JSONB,
  cross_sell_rule JSONB,
  PRIMARY KEY (cart_id, line_id),
  CHECK (upsell_rule IS NULL OR cross_sell_rule IS NULL)
);
`
