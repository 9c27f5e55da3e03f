package billing

import (
	"time"

	"github.com/vendora/backend/internal/domain/billing"
)

// UsageDetail is the usage of one resource kind against its quota
type UsageDetail struct {
	Current    int64 `json:"current"`
	Limit      int64 `json:"limit"`
	Remaining  int64 `json:"remaining"`
	Percentage int   `json:"percentage"`
	Unlimited  bool  `json:"unlimited"`
}

// SubscriptionInfo summarises a tenant's plan, usage and features
type SubscriptionInfo struct {
	PlanID      billing.PlanID         `json:"plan"`
	PlanName    string                 `json:"plan_name"`
	Usage       map[string]UsageDetail `json:"usage"`
	Features    map[string]bool        `json:"features"`
	PeriodStart time.Time              `json:"period_start"`
	PeriodEnd   time.Time              `json:"period_end"`
}

// ProcessResult describes what ProcessEvent did with a delivery
type ProcessResult struct {
	Provider   billing.Provider  `json:"provider"`
	EventID    string            `json:"event_id"`
	EventType  billing.EventType `json:"event_type"`
	Processed  bool              `json:"processed"`
	Duplicate  bool              `json:"duplicate"`
	Ignored    bool              `json:"ignored"`
	RetryCount int               `json:"retry_count"`
}
