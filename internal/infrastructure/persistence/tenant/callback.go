package tenant

import (
	"reflect"

	domaintenant "github.com/vendora/backend/internal/domain/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantCallback provides GORM callback hooks for automatic tenant filtering.
// Only models whose schema has the tenant column are affected.
type TenantCallback struct {
	tenantColumn string
	required     bool
}

// NewTenantCallback creates a new tenant callback handler
func NewTenantCallback(tenantColumn string, required bool) *TenantCallback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	return &TenantCallback{
		tenantColumn: tenantColumn,
		required:     required,
	}
}

// RegisterCallbacks registers tenant callbacks with GORM
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:before_row", tc.addTenantFilter); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:before_create", tc.stampTenant)
}

// sellerTenant resolves the tenant to filter on. ok is false when the
// statement must run unfiltered.
func (tc *TenantCallback) sellerTenant(db *gorm.DB) (string, bool) {
	if db.Statement.Context == nil || !tc.hasTenantColumn(db) {
		return "", false
	}

	id, bound := domaintenant.Current(db.Statement.Context)
	if bound && id.IsAdmin() {
		return "", false
	}
	if !bound || id.TenantID == "" {
		if tc.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return "", false
	}
	return id.TenantID, true
}

// addTenantFilter adds tenant filtering to SELECT, UPDATE, DELETE and row queries
func (tc *TenantCallback) addTenantFilter(db *gorm.DB) {
	tenantID, ok := tc.sellerTenant(db)
	if !ok {
		return
	}

	// ANDed with any explicit tenant condition: a foreign tenant ID never matches.
	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// stampTenant fills an empty tenant column on create and rejects rows that
// name another tenant.
func (tc *TenantCallback) stampTenant(db *gorm.DB) {
	tenantID, ok := tc.sellerTenant(db)
	if !ok {
		return
	}

	field := db.Statement.Schema.LookUpField(tc.tenantColumn)
	ctx := db.Statement.Context
	rv := db.Statement.ReflectValue

	stamp := func(v reflect.Value) {
		current, zero := field.ValueOf(ctx, v)
		if zero {
			if err := field.Set(ctx, v, tenantID); err != nil {
				_ = db.AddError(err)
			}
			return
		}
		if s, isString := current.(string); isString && s != tenantID {
			_ = db.AddError(ErrTenantMismatch)
		}
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			elem := reflect.Indirect(rv.Index(i))
			if elem.Kind() == reflect.Struct {
				stamp(elem)
			}
		}
	case reflect.Struct:
		stamp(rv)
	}
}

func (tc *TenantCallback) hasTenantColumn(db *gorm.DB) bool {
	if db.Statement.Schema == nil {
		return false
	}
	return db.Statement.Schema.LookUpField(tc.tenantColumn) != nil
}

// EnableAutoTenantFilter registers the tenant callbacks on db
func EnableAutoTenantFilter(db *gorm.DB, required bool) error {
	return NewTenantCallback("tenant_id", required).RegisterCallbacks(db)
}
