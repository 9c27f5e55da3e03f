package billing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Unlimited is the quota sentinel for "no limit"
const Unlimited int64 = -1

// PlanID identifies a subscription tier
type PlanID string

const (
	PlanFree       PlanID = "free"
	PlanPro        PlanID = "pro"
	PlanEnterprise PlanID = "enterprise"
)

// String returns the string representation of PlanID
func (p PlanID) String() string {
	return string(p)
}

// IsValid returns true if the plan exists in the catalog
func (p PlanID) IsValid() bool {
	_, ok := catalog[p]
	return ok
}

// Feature is a boolean capability unlocked by a plan
type Feature string

const (
	FeatureReports         Feature = "reports"
	FeatureExportData      Feature = "export_data"
	FeatureMultipleImages  Feature = "multiple_images"
	FeaturePrioritySupport Feature = "priority_support"
	FeatureCustomBranding  Feature = "custom_branding"
	FeatureAPIAccess       Feature = "api_access"
)

// AllFeatures lists every feature flag in display order
var AllFeatures = []Feature{
	FeatureReports,
	FeatureExportData,
	FeatureMultipleImages,
	FeaturePrioritySupport,
	FeatureCustomBranding,
	FeatureAPIAccess,
}

// IsValid returns true for a known feature flag
func (f Feature) IsValid() bool {
	for _, known := range AllFeatures {
		if f == known {
			return true
		}
	}
	return false
}

// PlanDefinition is an immutable subscription tier
type PlanDefinition struct {
	ID                 PlanID
	Name               string
	Price              decimal.Decimal
	MaxProducts        int64
	MaxOrdersPerPeriod int64
	MaxCustomers       int64
	features           map[Feature]bool
}

// Limit returns the quota for a resource kind
func (p PlanDefinition) Limit(kind ResourceKind) int64 {
	switch kind {
	case ResourceProduct:
		return p.MaxProducts
	case ResourceOrder:
		return p.MaxOrdersPerPeriod
	case ResourceCustomer:
		return p.MaxCustomers
	}
	return 0
}

// HasFeature reports whether the plan unlocks f
func (p PlanDefinition) HasFeature(f Feature) bool {
	return p.features[f]
}

// Features returns the full flag map, including disabled flags
func (p PlanDefinition) Features() map[Feature]bool {
	out := make(map[Feature]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		out[f] = p.features[f]
	}
	return out
}

// PriceCents returns the monthly price in minor units
func (p PlanDefinition) PriceCents() int64 {
	return p.Price.Shift(2).IntPart()
}

func features(enabled ...Feature) map[Feature]bool {
	m := make(map[Feature]bool, len(enabled))
	for _, f := range enabled {
		m[f] = true
	}
	return m
}

var catalog = map[PlanID]PlanDefinition{
	PlanFree: {
		ID:                 PlanFree,
		Name:               "Gratuito",
		Price:              decimal.Zero,
		MaxProducts:        50,
		MaxOrdersPerPeriod: 30,
		MaxCustomers:       100,
		features:           features(),
	},
	PlanPro: {
		ID:                 PlanPro,
		Name:               "Profissional",
		Price:              decimal.RequireFromString("49.90"),
		MaxProducts:        500,
		MaxOrdersPerPeriod: 500,
		MaxCustomers:       1000,
		features:           features(FeatureReports, FeatureExportData, FeatureMultipleImages),
	},
	PlanEnterprise: {
		ID:                 PlanEnterprise,
		Name:               "Empresarial",
		Price:              decimal.RequireFromString("149.90"),
		MaxProducts:        Unlimited,
		MaxOrdersPerPeriod: Unlimited,
		MaxCustomers:       Unlimited,
		features:           features(AllFeatures...),
	},
}

var planOrder = map[PlanID]int{PlanFree: 0, PlanPro: 1, PlanEnterprise: 2}

// LookupPlan returns the definition for id
func LookupPlan(id PlanID) (PlanDefinition, bool) {
	p, ok := catalog[id]
	return p, ok
}

// PlanOrFree returns the definition for id, falling back to the free tier
func PlanOrFree(id PlanID) PlanDefinition {
	if p, ok := catalog[id]; ok {
		return p
	}
	return catalog[PlanFree]
}

// Plans returns every plan from cheapest to most expensive
func Plans() []PlanDefinition {
	out := make([]PlanDefinition, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return planOrder[out[i].ID] < planOrder[out[j].ID]
	})
	return out
}
