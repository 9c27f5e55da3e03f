// Package tenant provides multi-tenant database scoping for GORM.
//
// Tenant filtering is derived from the identity bound on the request context.
// Seller identities get WHERE tenant_id = ? on every statement; the admin role
// is deliberately unfiltered.
//
// Usage:
//
//	db := tenant.NewTenantDB(gormDB)
//	db.WithContext(ctx).Find(&products) // WHERE tenant_id = 'xxx' is auto-added
package tenant

import (
	"context"
	"errors"

	domaintenant "github.com/vendora/backend/internal/domain/tenant"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrTenantMismatch is returned when a seller writes a row owned by another tenant
var ErrTenantMismatch = errors.New("tenant_id does not match the bound tenant")

// TenantScope applies tenant filtering to GORM queries
func TenantScope(column, tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(map[string]any{column: tenantID})
	}
}

// TenantDB wraps GORM DB with automatic tenant scoping
type TenantDB struct {
	db           *gorm.DB
	tenantColumn string
	required     bool
}

// Config holds configuration for TenantDB
type Config struct {
	// TenantColumn is the name of the tenant ID column (default: "tenant_id")
	TenantColumn string
	// Required determines if a bound tenant is mandatory (default: true)
	Required bool
}

// DefaultConfig returns default TenantDB configuration
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     true,
	}
}

// NewTenantDB creates a new TenantDB with default configuration
func NewTenantDB(db *gorm.DB) *TenantDB {
	return NewTenantDBWithConfig(db, DefaultConfig())
}

// NewTenantDBWithConfig creates a new TenantDB with custom configuration
func NewTenantDBWithConfig(db *gorm.DB, cfg Config) *TenantDB {
	if cfg.TenantColumn == "" {
		cfg.TenantColumn = "tenant_id"
	}
	return &TenantDB{
		db:           db,
		tenantColumn: cfg.TenantColumn,
		required:     cfg.Required,
	}
}

// WithContext returns a GORM DB scoped to the identity bound on ctx.
//
// Admins get an unfiltered DB. When no identity is bound and the scope is
// required, the returned DB carries ErrTenantIDRequired and every operation
// on it fails.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	db := t.db.WithContext(ctx)

	id, ok := domaintenant.Current(ctx)
	if !ok || (id.TenantID == "" && !id.IsAdmin()) {
		if t.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return db
	}
	if id.IsAdmin() {
		return db
	}
	return db.Scopes(TenantScope(t.tenantColumn, id.TenantID)).Session(&gorm.Session{})
}

// WithTenant returns a GORM DB scoped to a specific tenant ID.
// Use this when the tenant is known explicitly, e.g. in background jobs.
func (t *TenantDB) WithTenant(ctx context.Context, tenantID string) *gorm.DB {
	db := t.db.WithContext(ctx)
	if tenantID == "" {
		if t.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return db
	}
	return db.Scopes(TenantScope(t.tenantColumn, tenantID)).Session(&gorm.Session{})
}

// Transaction executes fn within a database transaction carrying the same scope as WithContext
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	scoped := t.WithContext(ctx)
	if scoped.Error != nil {
		return scoped.Error
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, ok := domaintenant.Current(ctx)
		if ok && !id.IsAdmin() && id.TenantID != "" {
			tx = tx.Scopes(TenantScope(t.tenantColumn, id.TenantID)).Session(&gorm.Session{})
		}
		return fn(tx)
	})
}

// Unscoped returns the underlying DB without any tenant scoping.
// Only system-level operations such as migrations and webhook reconciliation use it.
func (t *TenantDB) Unscoped() *gorm.DB {
	return t.db
}

// SetRequired returns a copy with a different required flag
func (t *TenantDB) SetRequired(required bool) *TenantDB {
	return &TenantDB{
		db:           t.db,
		tenantColumn: t.tenantColumn,
		required:     required,
	}
}
