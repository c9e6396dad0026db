package shop

const ShopsTableDDL = `
CREATE TABLE IF NOT EXISTS shops (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  owner_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shops_owner ON shops (owner_id);
`
