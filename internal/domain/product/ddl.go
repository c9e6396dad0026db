package product

// ProductsTableDDL is the read model of the catalog (written by the catalog service).
const ProductsTableDDL = `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  name TEXT NOT NULL,
  icon_url TEXT NOT NULL DEFAULT '',
  category_id TEXT NOT NULL DEFAULT '',
  unit_price NUMERIC(12,2) NOT NULL,
  discount_type TEXT NOT NULL DEFAULT '',
  discount_value NUMERIC(12,2) NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_products_shop ON products (shop_id);
`
