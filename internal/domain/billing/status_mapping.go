package billing

import "strings"

var providerStatuses = map[Provider]map[string]SubscriptionStatus{
	ProviderStripe: {
		"active":             StatusActive,
		"trialing":           StatusTrialing,
		"past_due":           StatusPastDue,
		"canceled":           StatusCanceled,
		"unpaid":             StatusPastDue,
		"paused":             StatusPaused,
		"incomplete":         StatusPastDue,
		"incomplete_expired": StatusCanceled,
	},
	ProviderPagSeguro: {
		"ACTIVE":    StatusActive,
		"TRIAL":     StatusTrialing,
		"PENDING":   StatusTrialing,
		"OVERDUE":   StatusPastDue,
		"CANCELED":  StatusCanceled,
		"EXPIRED":   StatusCanceled,
		"SUSPENDED": StatusPaused,
	},
	ProviderPaddle: {
		"active":   StatusActive,
		"trialing": StatusTrialing,
		"past_due": StatusPastDue,
		"canceled": StatusCanceled,
		"paused":   StatusPaused,
	},
}

// MapProviderStatus translates a provider status string to the canonical
// status. Unrecognised values map to active and report ok=false so callers
// can log them.
func MapProviderStatus(provider Provider, raw string) (status SubscriptionStatus, ok bool) {
	table := providerStatuses[provider]
	if provider == ProviderPagSeguro {
		raw = strings.ToUpper(raw)
	} else {
		raw = strings.ToLower(raw)
	}
	if s, found := table[raw]; found {
		return s, true
	}
	if s := SubscriptionStatus(strings.ToLower(raw)); s.IsValid() {
		return s, true
	}
	return StatusActive, false
}
