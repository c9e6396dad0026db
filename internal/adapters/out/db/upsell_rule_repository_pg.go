// internal/adapters/out/db/upsell_rule_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	dbcommon "storefront/internal/adapters/out/db/common"
	ruledom "storefront/internal/domain/upsellRule"
)

var ErrConflict = errors.New("db: conflict")

// UpsellRuleRepositoryPG implements upsellRule.Repository on PostgreSQL.
type UpsellRuleRepositoryPG struct {
	DB *sql.DB
}

func NewUpsellRuleRepositoryPG(db *sql.DB) *UpsellRuleRepositoryPG {
	return &UpsellRuleRepositoryPG{DB: db}
}

var _ ruledom.Repository = (*UpsellRuleRepositoryPG)(nil)

const ruleColumns = `
  id, shop_id, rule_name, description, rule_type, priority,
  discount_type, discount_value, offered_products,
  min_cart_value, max_cart_value, trigger_products, trigger_categories,
  is_active, stats_impressions, stats_conversions, stats_revenue,
  created_at, updated_at`

// high > medium > low, then newest
const ruleOrderBy = `ORDER BY CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC, created_at DESC`

// =======================
// Queries
// =======================

func (r *UpsellRuleRepositoryPG) GetByID(ctx context.Context, id string) (ruledom.Rule, error) {
	q := `SELECT` + ruleColumns + `
FROM upsell_rules
WHERE id = $1`

	run := dbcommon.GetRunner(ctx, r.DB)
	rule, err := scanRule(run.QueryRowContext(ctx, q, strings.TrimSpace(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}
	return rule, err
}

func (r *UpsellRuleRepositoryPG) List(ctx context.Context, f ruledom.Filter) ([]ruledom.Rule, error) {
	where, args := buildRuleWhere(f)
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	q := fmt.Sprintf(`SELECT%s
FROM upsell_rules
%s
%s`, ruleColumns, whereSQL, ruleOrderBy)

	run := dbcommon.GetRunner(ctx, r.DB)
	rows, err := run.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ruledom.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// =======================
// Commands
// =======================

func (r *UpsellRuleRepositoryPG) Create(ctx context.Context, rule ruledom.Rule) (ruledom.Rule, error) {
	const q = `
INSERT INTO upsell_rules (
  id, shop_id, rule_name, description, rule_type, priority,
  discount_type, discount_value, offered_products,
  min_cart_value, max_cart_value, trigger_products, trigger_categories,
  is_active, stats_impressions, stats_conversions, stats_revenue,
  created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6,
  $7, $8, $9,
  $10, $11, $12, $13,
  $14, $15, $16, $17,
  $18, $19
)`

	run := dbcommon.GetRunner(ctx, r.DB)
	_, err := run.ExecContext(ctx, q,
		rule.ID, rule.ShopID, rule.RuleName, rule.Description, string(rule.RuleType), string(rule.Priority),
		string(rule.DiscountType), rule.DiscountValue, pq.Array(rule.OfferedProducts),
		rule.Conditions.MinCartValue, rule.Conditions.MaxCartValue,
		pq.Array(rule.Conditions.TriggerProducts), pq.Array(rule.Conditions.TriggerCategories),
		rule.IsActive, rule.Stats.Impressions, rule.Stats.Conversions, rule.Stats.Revenue,
		rule.CreatedAt.UTC(), rule.UpdatedAt.UTC(),
	)
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			return ruledom.Rule{}, fmt.Errorf("%w: upsell rule %s", ErrConflict, rule.ID)
		}
		return ruledom.Rule{}, err
	}
	return rule, nil
}

// Save overwrites every column except the stats_* counters.
func (r *UpsellRuleRepositoryPG) Save(ctx context.Context, rule ruledom.Rule) (ruledom.Rule, error) {
	q := `
UPDATE upsell_rules SET
  shop_id = $2, rule_name = $3, description = $4, rule_type = $5, priority = $6,
  discount_type = $7, discount_value = $8, offered_products = $9,
  min_cart_value = $10, max_cart_value = $11, trigger_products = $12, trigger_categories = $13,
  is_active = $14, updated_at = $15
WHERE id = $1
RETURNING` + ruleColumns

	run := dbcommon.GetRunner(ctx, r.DB)
	saved, err := scanRule(run.QueryRowContext(ctx, q,
		rule.ID, rule.ShopID, rule.RuleName, rule.Description, string(rule.RuleType), string(rule.Priority),
		string(rule.DiscountType), rule.DiscountValue, pq.Array(rule.OfferedProducts),
		rule.Conditions.MinCartValue, rule.Conditions.MaxCartValue,
		pq.Array(rule.Conditions.TriggerProducts), pq.Array(rule.Conditions.TriggerCategories),
		rule.IsActive, rule.UpdatedAt.UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return ruledom.Rule{}, ruledom.ErrNotFound
	}
	return saved, err
}

func (r *UpsellRuleRepositoryPG) Delete(ctx context.Context, id string) error {
	run := dbcommon.GetRunner(ctx, r.DB)
	res, err := run.ExecContext(ctx, `DELETE FROM upsell_rules WHERE id = $1`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	return dbcommon.RowsAffectedOr(res, ruledom.ErrNotFound)
}

// IncrementStats adds delta in place; concurrent increments never lose updates.
func (r *UpsellRuleRepositoryPG) IncrementStats(ctx context.Context, id string, d ruledom.StatsDelta) error {
	if d.IsZero() {
		return nil
	}
	const q = `
UPDATE upsell_rules SET
  stats_impressions = stats_impressions + $2,
  stats_conversions = stats_conversions + $3,
  stats_revenue = stats_revenue + $4
WHERE id = $1`

	run := dbcommon.GetRunner(ctx, r.DB)
	res, err := run.ExecContext(ctx, q, strings.TrimSpace(id), d.Impressions, d.Conversions, d.Revenue)
	if err != nil {
		return err
	}
	return dbcommon.RowsAffectedOr(res, ruledom.ErrNotFound)
}

// =======================
// Helpers
// =======================

func buildRuleWhere(f ruledom.Filter) ([]string, []any) {
	var where []string
	var args []any

	if shops := f.Shops(); len(shops) > 0 {
		dbcommon.AppendCond(&where, &args, "shop_id = ANY($%d)", pq.Array(shops))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		dbcommon.AppendCond(&where, &args, `rule_name ILIKE $%d ESCAPE '\'`, "%"+escapeLike(s)+"%")
	}
	if f.RuleType != nil {
		dbcommon.AppendCond(&where, &args, "rule_type = $%d", string(*f.RuleType))
	}
	if f.IsActive != nil {
		dbcommon.AppendCond(&where, &args, "is_active = $%d", *f.IsActive)
	}
	if f.CartTotal != nil {
		dbcommon.AppendCond(&where, &args, "min_cart_value <= $%d", *f.CartTotal)
		dbcommon.AppendCond(&where, &args, "(max_cart_value = 0 OR max_cart_value >= $%d)", *f.CartTotal)
	}
	return where, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanRule(s dbcommon.RowScanner) (ruledom.Rule, error) {
	var (
		rule                        ruledom.Rule
		ruleType, priority, discTyp string
		offered, triggers, cats     []string
		createdAt, updatedAt        time.Time
	)
	if err := s.Scan(
		&rule.ID, &rule.ShopID, &rule.RuleName, &rule.Description, &ruleType, &priority,
		&discTyp, &rule.DiscountValue, pq.Array(&offered),
		&rule.Conditions.MinCartValue, &rule.Conditions.MaxCartValue, pq.Array(&triggers), pq.Array(&cats),
		&rule.IsActive, &rule.Stats.Impressions, &rule.Stats.Conversions, &rule.Stats.Revenue,
		&createdAt, &updatedAt,
	); err != nil {
		return ruledom.Rule{}, err
	}

	rule.RuleType = ruledom.RuleType(ruleType)
	rule.Priority = ruledom.Priority(priority)
	rule.DiscountType = ruledom.DiscountType(discTyp)
	rule.OfferedProducts = nonNil(offered)
	rule.Conditions.TriggerProducts = nonNil(triggers)
	rule.Conditions.TriggerCategories = nonNil(cats)
	rule.CreatedAt = createdAt.UTC()
	rule.UpdatedAt = updatedAt.UTC()
	return rule, nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
