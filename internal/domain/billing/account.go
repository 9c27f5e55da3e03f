package billing

import "time"

// Account holds a tenant's current plan. Its ID is the tenant ID.
type Account struct {
	ID        string
	Name      string
	PlanID    PlanID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan returns the account's plan definition, falling back to free
func (a *Account) Plan() PlanDefinition {
	if a == nil {
		return PlanOrFree(PlanFree)
	}
	return PlanOrFree(a.PlanID)
}
