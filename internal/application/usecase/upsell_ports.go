// internal/application/usecase/upsell_ports.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	ruledom "storefront/internal/domain/upsellRule"
)

// ===============================
// Cache
// ===============================

// Cache is a get-or-compute memo with glob invalidation.
// Implementations log and fall through to compute on backend failures.
type Cache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error)
	DeletePattern(ctx context.Context, pattern string) error
}

type noopCache struct{}

func (noopCache) Remember(ctx context.Context, _ string, _ time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	return compute(ctx)
}

func (noopCache) DeletePattern(context.Context, string) error { return nil }

// RememberJSON wraps Cache.Remember with JSON encoding of T. A nil cache always computes.
func RememberJSON[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		c = noopCache{}
	}
	var (
		out      T
		computed bool
	)
	raw, err := c.Remember(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		out, computed = v, true
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if computed {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		// unreadable entry: serve fresh data
		return fn(ctx)
	}
	return out, nil
}

// DefaultRuleListTTL bounds staleness of listing reads between mutations.
const DefaultRuleListTTL = 30 * time.Second

// Key namespace:
//
//	shop:{shopId}:upsell:*         owner listings
//	public:shop:{shopId}:upsell:*  public listings / snapshots
func ShopRuleCachePattern(shopID string) string {
	return "shop:" + shopID + ":upsell:*"
}

func PublicRuleCachePattern(shopID string) string {
	return "public:shop:" + shopID + ":upsell:*"
}

func ShopRuleListKey(shopID string, f RuleListFilter) string {
	return fmt.Sprintf(
		"shop:%s:upsell:list:type=%s:status=%s:q=%s",
		shopID, f.RuleType, f.Status, url.QueryEscape(strings.ToLower(strings.TrimSpace(f.Search))),
	)
}

func PublicRuleListKey(shopID string) string {
	return "public:shop:" + shopID + ":upsell:list"
}

func PublicRuleKey(shopID, ruleID string) string {
	return "public:shop:" + shopID + ":upsell:rule:" + ruleID
}

// ===============================
// Transactions
// ===============================

// TxRunner runs fn so that the repository writes inside it commit together
// when the backend supports it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SequentialTx runs fn directly (backends without multi-document transactions).
type SequentialTx struct{}

func (SequentialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ===============================
// Impressions / metrics
// ===============================

// ImpressionSink records rule impressions. Record must not block or fail the caller.
type ImpressionSink interface {
	Record(ruleIDs []string)
}

// ImpressionSinkFunc adapts a function to ImpressionSink.
type ImpressionSinkFunc func(ruleIDs []string)

func (f ImpressionSinkFunc) Record(ruleIDs []string) { f(ruleIDs) }

type noopImpressions struct{}

func (noopImpressions) Record([]string) {}

// RuleMetrics receives counters for dashboards.
type RuleMetrics interface {
	ImpressionRecorded(ctx context.Context, ruleID string)
	ConversionRecorded(ctx context.Context, ruleType ruledom.RuleType, revenue float64)
}

type noopMetrics struct{}

func (noopMetrics) ImpressionRecorded(context.Context, string) {}

func (noopMetrics) ConversionRecorded(context.Context, ruledom.RuleType, float64) {}

// ===============================
// Icons
// ===============================

// IconURLResolver turns a stored product icon reference into a URL clients can load.
type IconURLResolver interface {
	ResolveIconURL(ctx context.Context, raw string) string
}
