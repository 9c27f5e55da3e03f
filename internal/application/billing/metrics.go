package billing

import (
	"context"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
)

// Webhook processing outcomes reported to Metrics
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
)

// Metrics receives billing counters. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordWebhook(ctx context.Context, provider billing.Provider, outcome string, took time.Duration)
	RecordQuotaRejection(ctx context.Context, kind billing.ResourceKind, plan billing.PlanID)
}

type noopMetrics struct{}

func (noopMetrics) RecordWebhook(context.Context, billing.Provider, string, time.Duration) {}

func (noopMetrics) RecordQuotaRejection(context.Context, billing.ResourceKind, billing.PlanID) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
