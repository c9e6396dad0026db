// internal/infra/telemetry/rule_metrics.go
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	uc "storefront/internal/application/usecase"
	ruledom "storefront/internal/domain/upsellRule"
)

const meterName = "storefront/upsell"

// RuleMetrics records offer impressions and conversions as OpenTelemetry counters.
type RuleMetrics struct {
	impressions metric.Int64Counter
	conversions metric.Int64Counter
	revenue     metric.Float64Counter
}

var _ uc.RuleMetrics = (*RuleMetrics)(nil)

// NewRuleMetrics uses the global meter provider when mp is nil.
func NewRuleMetrics(mp metric.MeterProvider) (*RuleMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   RuleMetrics
		err error
	)
	m.impressions, err = meter.Int64Counter("upsell.impressions.total",
		metric.WithDescription("Offers shown to shoppers"),
		metric.WithUnit("{impression}"),
	)
	if err != nil {
		return nil, err
	}
	m.conversions, err = meter.Int64Counter("upsell.conversions.total",
		metric.WithDescription("Offers accepted by shoppers"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, err
	}
	m.revenue, err = meter.Float64Counter("upsell.revenue.total",
		metric.WithDescription("Revenue attributed to accepted offers"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *RuleMetrics) ImpressionRecorded(ctx context.Context, ruleID string) {
	m.impressions.Add(ctx, 1, metric.WithAttributes(attribute.String("rule.id", ruleID)))
}

func (m *RuleMetrics) ConversionRecorded(ctx context.Context, ruleType ruledom.RuleType, revenue float64) {
	attrs := metric.WithAttributes(attribute.String("rule.type", string(ruleType)))
	m.conversions.Add(ctx, 1, attrs)
	if revenue > 0 {
		m.revenue.Add(ctx, revenue, attrs)
	}
}
