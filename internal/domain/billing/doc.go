// Package billing holds the subscription and usage-enforcement domain.
//
// Key types:
//   - PlanDefinition: a compiled-in subscription tier with numeric quotas and feature flags
//   - UsageRecord: per-tenant, per-calendar-month snapshot of quota-relevant counts
//   - Subscription: a provider-backed subscription whose status drives the account plan
//   - WebhookEvent: deduplication and retry bookkeeping for provider notifications
//   - AuditEntry: before/after record of every ledger mutation
//
// Tenant IDs are opaque strings; they are the same value as the account ID.
package billing
