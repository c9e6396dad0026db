package upsellRule

// UpsellRulesTableDDL is the Postgres schema of the rule store.
const UpsellRulesTableDDL = `
CREATE TABLE IF NOT EXISTS upsell_rules (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  rule_name VARCHAR(200) NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  rule_type TEXT NOT NULL CHECK (rule_type IN ('upsell', 'cross-sell')),
  priority TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
  discount_type TEXT NOT NULL CHECK (discount_type IN ('flat', 'percentage')),
  discount_value NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (discount_value >= 0),
  offered_products TEXT[] NOT NULL,

  min_cart_value NUMERIC(12,2) NOT NULL DEFAULT 0,
  max_cart_value NUMERIC(12,2) NOT NULL DEFAULT 0,
  trigger_products TEXT[] NOT NULL DEFAULT '{}',
  trigger_categories TEXT[] NOT NULL DEFAULT '{}',

  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  stats_impressions BIGINT NOT NULL DEFAULT 0,
  stats_conversions BIGINT NOT NULL DEFAULT 0,
  stats_revenue NUMERIC(14,2) NOT NULL DEFAULT 0,

  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_upsell_rules_shop_active ON upsell_rules (shop_id, is_active);
`
