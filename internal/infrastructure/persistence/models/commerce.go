package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel is a catalog row. Soft-deleted products do not count toward usage.
type ProductModel struct {
	TenantModel
	Name      string          `gorm:"type:varchar(200);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DeletedAt gorm.DeletedAt  `gorm:"index"`
}

func (ProductModel) TableName() string { return "products" }

// CustomerModel is a buyer row
type CustomerModel struct {
	TenantModel
	Name   string `gorm:"type:varchar(200);not null"`
	Email  string `gorm:"type:varchar(200)"`
	Active bool   `gorm:"not null;default:true"`
}

func (CustomerModel) TableName() string { return "customers" }

// OrderModel is a sale row; created_at places it in a usage period
type OrderModel struct {
	TenantModel
	CustomerID string          `gorm:"type:varchar(64)"`
	Total      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

func (OrderModel) TableName() string { return "orders" }

// All returns every model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&AccountModel{},
		&SubscriptionModel{},
		&UsageRecordModel{},
		&WebhookEventModel{},
		&AuditLogModel{},
		&ProductModel{},
		&CustomerModel{},
		&OrderModel{},
	}
}
