package billing

// LimitCheck is the outcome of comparing usage against a plan quota
type LimitCheck struct {
	Kind      ResourceKind `json:"kind"`
	Allowed   bool         `json:"allowed"`
	Current   int64        `json:"current"`
	Limit     int64        `json:"limit"`
	Remaining int64        `json:"remaining"`
	Unlimited bool         `json:"unlimited"`
	PlanID    PlanID       `json:"plan"`
}

// EvaluateLimit applies the admission rule: an unlimited quota always
// allows, otherwise current must be strictly below the limit.
func EvaluateLimit(plan PlanDefinition, kind ResourceKind, current int64) LimitCheck {
	limit := plan.Limit(kind)
	check := LimitCheck{
		Kind:    kind,
		Current: current,
		Limit:   limit,
		PlanID:  plan.ID,
	}

	if limit == Unlimited {
		check.Allowed = true
		check.Unlimited = true
		check.Remaining = Unlimited
		return check
	}

	check.Allowed = current < limit
	check.Remaining = limit - current
	if check.Remaining < 0 {
		check.Remaining = 0
	}
	return check
}

// Percentage returns current/limit as a rounded percentage, 0 when unlimited
func (c LimitCheck) Percentage() int {
	if c.Unlimited || c.Limit <= 0 {
		return 0
	}
	return int((c.Current*100 + c.Limit/2) / c.Limit)
}
