package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/domain/commerce"
	"github.com/vendora/backend/internal/infrastructure/persistence/models"
	"github.com/vendora/backend/internal/infrastructure/persistence/tenant"
)

func TestGormCommerceRepository_TenantScoped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCommerceRepository(tenant.NewTenantDB(db))

	p, err := commerce.NewProduct("acme", "Mug", decimal.NewFromInt(25))
	require.NoError(t, err)
	require.NoError(t, repo.CreateProduct(sellerCtx("acme"), p))

	c, err := commerce.NewCustomer("acme", "Ana", "ana@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.CreateCustomer(sellerCtx("acme"), c))

	o, err := commerce.NewOrder("acme", c.ID.String(), decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(sellerCtx("acme"), o))

	t.Run("no tenant bound", func(t *testing.T) {
		p2, err := commerce.NewProduct("acme", "Plate", decimal.Zero)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.CreateProduct(context.Background(), p2), tenant.ErrTenantIDRequired)
	})

	t.Run("foreign tenant row rejected", func(t *testing.T) {
		p3, err := commerce.NewProduct("globex", "Bowl", decimal.Zero)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.CreateProduct(sellerCtx("acme"), p3), tenant.ErrTenantMismatch)
	})

	var stored models.ProductModel
	require.NoError(t, db.WithContext(sellerCtx("acme")).First(&stored, "id = ?", p.ID).Error)
	assert.True(t, decimal.NewFromInt(25).Equal(stored.Price))
}

func TestGormUsageCounter(t *testing.T) {
	db := setupTestDB(t)
	counter := NewGormUsageCounter(db)
	ctx := adminCtx()
	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	mk := func(tenantID string) models.TenantModel {
		tm := models.TenantModel{TenantID: tenantID}
		tm.ID = uuid.New()
		return tm
	}

	products := []models.ProductModel{
		{TenantModel: mk("acme"), Name: "a"},
		{TenantModel: mk("acme"), Name: "b"},
		{TenantModel: mk("acme"), Name: "deleted"},
		{TenantModel: mk("globex"), Name: "c"},
	}
	require.NoError(t, db.WithContext(ctx).Create(&products).Error)
	require.NoError(t, db.WithContext(ctx).Delete(&products[2]).Error)

	customers := []models.CustomerModel{
		{TenantModel: mk("acme"), Name: "x", Active: true},
		{TenantModel: mk("acme"), Name: "y", Active: true},
	}
	require.NoError(t, db.WithContext(ctx).Create(&customers).Error)
	require.NoError(t, db.WithContext(ctx).Model(&customers[1]).Update("active", false).Error)

	inPeriod := mk("acme")
	inPeriod.CreatedAt = from.Add(48 * time.Hour)
	lastMonth := mk("acme")
	lastMonth.CreatedAt = from.Add(-time.Hour)
	orders := []models.OrderModel{{TenantModel: inPeriod}, {TenantModel: lastMonth}}
	require.NoError(t, db.WithContext(ctx).Create(&orders).Error)

	n, err := counter.CountProducts(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = counter.CountActiveCustomers(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = counter.CountOrders(ctx, "acme", from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// a seller asking for another tenant's counts sees nothing
	n, err = counter.CountProducts(sellerCtx("acme"), "globex")
	require.NoError(t, err)
	assert.Zero(t, n)
}
