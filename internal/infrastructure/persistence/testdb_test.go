package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	domaintenant "github.com/vendora/backend/internal/domain/tenant"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a private in-memory sqlite database with every model
// migrated and the tenant callbacks registered.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := Open(sqlite.Open(dsn), nil)
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, database.DB.AutoMigrate(models.All()...))
	return database.DB
}

func sellerCtx(tenantID string) context.Context {
	return domaintenant.WithIdentity(context.Background(), domaintenant.Identity{
		TenantID: tenantID,
		UserID:   "u-" + tenantID,
		Role:     domaintenant.RoleSeller,
	})
}

func adminCtx() context.Context {
	return domaintenant.WithIdentity(context.Background(), domaintenant.Identity{
		TenantID: "ops",
		UserID:   "root",
		Role:     domaintenant.RoleAdmin,
	})
}
