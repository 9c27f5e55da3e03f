package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BillingMetrics records webhook and admission counters.
// It satisfies application/billing.Metrics.
type BillingMetrics struct {
	webhookEvents   metric.Int64Counter
	webhookDuration metric.Float64Histogram
	quotaRejections metric.Int64Counter
}

// NewBillingMetrics creates the billing instruments on meter
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	webhookEvents, err := meter.Int64Counter("webhook_events_total",
		metric.WithDescription("Webhook deliveries by provider and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook_events_total: %w", err)
	}

	webhookDuration, err := meter.Float64Histogram("webhook_processing_seconds",
		metric.WithDescription("Time spent reconciling one webhook delivery"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook_processing_seconds: %w", err)
	}

	quotaRejections, err := meter.Int64Counter("quota_rejections_total",
		metric.WithDescription("Create requests refused by the plan quota"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create quota_rejections_total: %w", err)
	}

	return &BillingMetrics{
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		quotaRejections: quotaRejections,
	}, nil
}

// RecordWebhook counts one delivery and its processing time
func (m *BillingMetrics) RecordWebhook(ctx context.Context, provider billing.Provider, outcome string, took time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", string(provider)),
		attribute.String("outcome", outcome),
	)
	m.webhookEvents.Add(ctx, 1, attrs)
	m.webhookDuration.Record(ctx, took.Seconds(), attrs)
}

// RecordQuotaRejection counts one refused create.
// Tenant IDs are not attributes; they would explode cardinality.
func (m *BillingMetrics) RecordQuotaRejection(ctx context.Context, kind billing.ResourceKind, plan billing.PlanID) {
	m.quotaRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("plan", string(plan)),
	))
}
