package billing

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of ledger mutation
type AuditAction string

const (
	AuditCreate       AuditAction = "CREATE"
	AuditUpdate       AuditAction = "UPDATE"
	AuditDelete       AuditAction = "DELETE"
	AuditStatusChange AuditAction = "STATUS_CHANGE"
	AuditPlanChange   AuditAction = "PLAN_CHANGE"
)

// Audited entity names
const (
	AuditEntityAccount      = "account"
	AuditEntitySubscription = "subscription"
	AuditEntityUsage        = "usage_record"
)

// AuditEntry is a write-only before/after record of a state change
type AuditEntry struct {
	ID        uuid.UUID
	TenantID  string
	UserID    string
	Action    AuditAction
	Entity    string
	EntityID  string
	OldValue  json.RawMessage
	NewValue  json.RawMessage
	Metadata  map[string]string
	CreatedAt time.Time
}

// NewAuditEntry snapshots oldValue and newValue as JSON. A nil value is stored as null.
func NewAuditEntry(tenantID, userID string, action AuditAction, entity, entityID string, oldValue, newValue any) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		OldValue:  snapshot(oldValue),
		NewValue:  snapshot(newValue),
		Metadata:  map[string]string{},
		CreatedAt: time.Now(),
	}
}

// WithMeta adds a metadata key and returns the entry
func (e *AuditEntry) WithMeta(key, value string) *AuditEntry {
	if value != "" {
		e.Metadata[key] = value
	}
	return e
}

func snapshot(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
