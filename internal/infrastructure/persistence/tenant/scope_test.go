package tenant

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupScopeDB opens a database without the callbacks so only TenantDB filters
func setupScopeDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&widget{}))
	seedWidgets(t, db)
	return db
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "tenant_id", cfg.TenantColumn)
	assert.True(t, cfg.Required)

	tdb := NewTenantDBWithConfig(nil, Config{})
	assert.Equal(t, "tenant_id", tdb.tenantColumn)
	assert.False(t, tdb.required)
}

func TestTenantDB_WithContext(t *testing.T) {
	tdb := NewTenantDB(setupScopeDB(t))

	t.Run("seller scope", func(t *testing.T) {
		scoped := tdb.WithContext(sellerCtx("globex"))
		var rows []widget
		require.NoError(t, scoped.Find(&rows).Error)
		require.Len(t, rows, 1)
		assert.Equal(t, "w3", rows[0].ID)

		// the scoped handle is reusable without accumulating conditions
		var count int64
		require.NoError(t, scoped.Model(&widget{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("admin is unfiltered", func(t *testing.T) {
		var rows []widget
		require.NoError(t, tdb.WithContext(adminCtx()).Find(&rows).Error)
		assert.Len(t, rows, 3)
	})

	t.Run("no tenant with required scope errors", func(t *testing.T) {
		var rows []widget
		err := tdb.WithContext(context.Background()).Find(&rows).Error
		assert.ErrorIs(t, err, ErrTenantIDRequired)
	})

	t.Run("no tenant with optional scope is unfiltered", func(t *testing.T) {
		var rows []widget
		require.NoError(t, tdb.SetRequired(false).WithContext(context.Background()).Find(&rows).Error)
		assert.Len(t, rows, 3)
	})
}

func TestTenantDB_WithTenant(t *testing.T) {
	tdb := NewTenantDB(setupScopeDB(t))

	var rows []widget
	require.NoError(t, tdb.WithTenant(context.Background(), "acme").Find(&rows).Error)
	assert.Len(t, rows, 2)

	err := tdb.WithTenant(context.Background(), "").Find(&rows).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}

func TestTenantDB_Transaction(t *testing.T) {
	tdb := NewTenantDB(setupScopeDB(t))

	err := tdb.Transaction(sellerCtx("acme"), func(tx *gorm.DB) error {
		var rows []widget
		if err := tx.Find(&rows).Error; err != nil {
			return err
		}
		assert.Len(t, rows, 2)
		return nil
	})
	require.NoError(t, err)

	err = tdb.Transaction(context.Background(), func(tx *gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}

func TestTenantDB_Unscoped(t *testing.T) {
	db := setupScopeDB(t)
	tdb := NewTenantDB(db)
	assert.Same(t, db, tdb.Unscoped())
}
