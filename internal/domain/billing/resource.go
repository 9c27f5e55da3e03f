package billing

import "strings"

// ResourceKind is a quota-counted entity type
type ResourceKind string

const (
	ResourceProduct  ResourceKind = "product"
	ResourceOrder    ResourceKind = "order"
	ResourceCustomer ResourceKind = "customer"
)

// AllResourceKinds lists the counted kinds
var AllResourceKinds = []ResourceKind{ResourceProduct, ResourceOrder, ResourceCustomer}

// String returns the string representation of ResourceKind
func (k ResourceKind) String() string {
	return string(k)
}

// IsValid returns true if the kind is counted
func (k ResourceKind) IsValid() bool {
	switch k {
	case ResourceProduct, ResourceOrder, ResourceCustomer:
		return true
	}
	return false
}

// Plural returns the plural form used in routes and messages
func (k ResourceKind) Plural() string {
	return string(k) + "s"
}

// ParseResourceKind accepts both singular and plural forms ("product", "products")
func ParseResourceKind(s string) (ResourceKind, bool) {
	k := ResourceKind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	return k, k.IsValid()
}
