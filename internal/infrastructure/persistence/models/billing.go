package models

import (
	"encoding/json"
	"time"

	"github.com/vendora/backend/internal/domain/billing"
)

// AccountModel holds a tenant's current plan. Its ID is the tenant ID.
type AccountModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null;default:''"`
	PlanID    string    `gorm:"column:plan_type;type:varchar(20);not null;default:'free'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (AccountModel) TableName() string { return "accounts" }

// ToDomain converts the model to a domain account
func (m *AccountModel) ToDomain() *billing.Account {
	return &billing.Account{
		ID:        m.ID,
		Name:      m.Name,
		PlanID:    billing.PlanID(m.PlanID),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// SubscriptionModel is the persistence model for subscriptions
type SubscriptionModel struct {
	TenantModel
	PlanID                 string     `gorm:"column:plan_type;type:varchar(20);not null"`
	Status                 string     `gorm:"type:varchar(20);not null;index"`
	Provider               string     `gorm:"column:payment_provider;type:varchar(20);not null;uniqueIndex:ux_subscriptions_provider_ref,priority:1"`
	ProviderSubscriptionID string     `gorm:"type:varchar(255);uniqueIndex:ux_subscriptions_provider_ref,priority:2,where:provider_subscription_id <> ''"`
	ProviderCustomerID     string     `gorm:"type:varchar(255)"`
	CurrentPeriodStart     time.Time  `gorm:"not null"`
	CurrentPeriodEnd       time.Time  `gorm:"not null"`
	TrialStart             *time.Time
	TrialEnd               *time.Time
	CancelAtPeriodEnd      bool `gorm:"not null;default:false"`
	CanceledAt             *time.Time
}

func (SubscriptionModel) TableName() string { return "subscriptions" }

// ToDomain converts the model to a domain subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		BaseEntity:             m.BaseModel.ToDomain(),
		TenantID:               m.TenantID,
		PlanID:                 billing.PlanID(m.PlanID),
		Status:                 billing.SubscriptionStatus(m.Status),
		Provider:               billing.Provider(m.Provider),
		ProviderSubscriptionID: m.ProviderSubscriptionID,
		ProviderCustomerID:     m.ProviderCustomerID,
		CurrentPeriodStart:     m.CurrentPeriodStart,
		CurrentPeriodEnd:       m.CurrentPeriodEnd,
		TrialStart:             m.TrialStart,
		TrialEnd:               m.TrialEnd,
		CancelAtPeriodEnd:      m.CancelAtPeriodEnd,
		CanceledAt:             m.CanceledAt,
	}
}

// SubscriptionModelFromDomain converts a domain subscription to a model
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{
		PlanID:                 string(s.PlanID),
		Status:                 string(s.Status),
		Provider:               string(s.Provider),
		ProviderSubscriptionID: s.ProviderSubscriptionID,
		ProviderCustomerID:     s.ProviderCustomerID,
		CurrentPeriodStart:     s.CurrentPeriodStart,
		CurrentPeriodEnd:       s.CurrentPeriodEnd,
		TrialStart:             s.TrialStart,
		TrialEnd:               s.TrialEnd,
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		CanceledAt:             s.CanceledAt,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	m.TenantID = s.TenantID
	return m
}

// UsageRecordModel is the monthly usage snapshot, unique per (tenant_id, period_start)
type UsageRecordModel struct {
	BaseModel
	TenantID       string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_usage_records_tenant_period,priority:1"`
	PeriodStart    time.Time `gorm:"not null;uniqueIndex:ux_usage_records_tenant_period,priority:2"`
	PeriodEnd      time.Time `gorm:"not null"`
	ProductsCount  int64     `gorm:"not null;default:0"`
	OrdersCount    int64     `gorm:"not null;default:0"`
	CustomersCount int64     `gorm:"not null;default:0"`
}

func (UsageRecordModel) TableName() string { return "usage_records" }

// ToDomain converts the model to a domain usage record
func (m *UsageRecordModel) ToDomain() *billing.UsageRecord {
	return &billing.UsageRecord{
		BaseEntity:     m.BaseModel.ToDomain(),
		TenantID:       m.TenantID,
		PeriodStart:    m.PeriodStart.UTC(),
		PeriodEnd:      m.PeriodEnd.UTC(),
		ProductsCount:  m.ProductsCount,
		OrdersCount:    m.OrdersCount,
		CustomersCount: m.CustomersCount,
	}
}

// UsageRecordModelFromDomain converts a domain usage record to a model
func UsageRecordModelFromDomain(r *billing.UsageRecord) *UsageRecordModel {
	m := &UsageRecordModel{
		TenantID:       r.TenantID,
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
		ProductsCount:  r.ProductsCount,
		OrdersCount:    r.OrdersCount,
		CustomersCount: r.CustomersCount,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

// WebhookEventModel is the dedup record, unique per (provider, provider_event_id)
type WebhookEventModel struct {
	BaseModel
	Provider        string     `gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_provider_event,priority:1"`
	ProviderEventID string     `gorm:"column:event_id;type:varchar(255);not null;uniqueIndex:ux_webhook_provider_event,priority:2"`
	EventType       string     `gorm:"type:varchar(100);not null"`
	Payload         string     `gorm:"type:text;not null"`
	Processed       bool       `gorm:"not null;default:false;index"`
	ProcessedAt     *time.Time
	RetryCount      int    `gorm:"not null;default:0"`
	Error           string `gorm:"type:text"`
	OccurredAt      *time.Time
}

func (WebhookEventModel) TableName() string { return "webhook_events" }

// ToDomain converts the model to a domain webhook event
func (m *WebhookEventModel) ToDomain() *billing.WebhookEvent {
	return &billing.WebhookEvent{
		BaseEntity:      m.BaseModel.ToDomain(),
		Provider:        billing.Provider(m.Provider),
		ProviderEventID: m.ProviderEventID,
		EventType:       m.EventType,
		Payload:         json.RawMessage(m.Payload),
		Processed:       m.Processed,
		ProcessedAt:     m.ProcessedAt,
		RetryCount:      m.RetryCount,
		Error:           m.Error,
		OccurredAt:      m.OccurredAt,
	}
}

// WebhookEventModelFromDomain converts a domain webhook event to a model
func WebhookEventModelFromDomain(e *billing.WebhookEvent) *WebhookEventModel {
	m := &WebhookEventModel{
		Provider:        string(e.Provider),
		ProviderEventID: e.ProviderEventID,
		EventType:       e.EventType,
		Payload:         string(e.Payload),
		Processed:       e.Processed,
		ProcessedAt:     e.ProcessedAt,
		RetryCount:      e.RetryCount,
		Error:           e.Error,
		OccurredAt:      e.OccurredAt,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// AuditLogModel is an append-only audit row
type AuditLogModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	TenantID  string    `gorm:"type:varchar(64);index"`
	UserID    string    `gorm:"type:varchar(64)"`
	Action    string    `gorm:"type:varchar(20);not null"`
	Entity    string    `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID  string    `gorm:"type:varchar(64);not null;index:idx_audit_entity,priority:2"`
	OldValue  string    `gorm:"type:text"`
	NewValue  string    `gorm:"type:text"`
	Metadata  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }

// AuditLogModelFromDomain converts a domain audit entry to a model
func AuditLogModelFromDomain(e *billing.AuditEntry) *AuditLogModel {
	meta, err := json.Marshal(e.Metadata)
	if err != nil || len(e.Metadata) == 0 {
		meta = []byte("{}")
	}
	return &AuditLogModel{
		ID:        e.ID.String(),
		TenantID:  e.TenantID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		OldValue:  string(e.OldValue),
		NewValue:  string(e.NewValue),
		Metadata:  string(meta),
		CreatedAt: e.CreatedAt,
	}
}
