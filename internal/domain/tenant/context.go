// Package tenant carries the calling tenant's identity on a context.Context.
//
// The identity is bound once per request, right after authentication, and is
// read by every data-access path below it. Because the binding is a context
// value it follows the request across goroutines and blocking calls and is
// never visible to other requests.
package tenant

import (
	"context"
	"errors"
	"fmt"
)

// Role is the role of the authenticated principal
type Role string

const (
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a claim value to a Role. Anything unrecognised is a seller.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleSeller
}

// Identity is the per-request tenant binding
type Identity struct {
	TenantID string
	UserID   string
	Role     Role
}

// IsAdmin reports whether the identity carries the operator role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// ErrNoTenant is matched by every ContextError
var ErrNoTenant = errors.New("tenant context required")

// ContextError is returned when code that must run inside a tenant-scoped
// request runs outside one.
type ContextError struct {
	Op string
}

func (e *ContextError) Error() string {
	if e.Op == "" {
		return ErrNoTenant.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrNoTenant.Error())
}

func (e *ContextError) Unwrap() error {
	return ErrNoTenant
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Run calls fn with id bound on the context it receives.
func Run(ctx context.Context, id Identity, fn func(ctx context.Context) error) error {
	return fn(WithIdentity(ctx, id))
}

// Current returns the bound identity, if any
func Current(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// TenantID returns the bound tenant ID or "" when unbound
func TenantID(ctx context.Context) string {
	id, _ := Current(ctx)
	return id.TenantID
}

// RequireTenantID returns the bound tenant ID or a *ContextError
func RequireTenantID(ctx context.Context) (string, error) {
	id, ok := Current(ctx)
	if !ok || id.TenantID == "" {
		return "", &ContextError{Op: "require tenant id"}
	}
	return id.TenantID, nil
}

// IsAdmin reports whether the bound role is admin. Unbound contexts are not admin.
func IsAdmin(ctx context.Context) bool {
	id, ok := Current(ctx)
	return ok && id.IsAdmin()
}
