package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	ruledom "storefront/internal/domain/upsellRule"
)

func TestRuleMetrics_NoopProvider(t *testing.T) {
	m, err := NewRuleMetrics(noop.NewMeterProvider())
	require.NoError(t, err)

	ctx := context.Background()
	m.ImpressionRecorded(ctx, "r1")
	m.ConversionRecorded(ctx, ruledom.RuleTypeCrossSell, 90)
	m.ConversionRecorded(ctx, ruledom.RuleTypeUpsell, 0)
}
