package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry a cart line points at.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID   uuid.UUID        `gorm:"column:merchant_id;type:uuid;not null"`
	Title        string           `gorm:"column:title;not null"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	SalePrice    *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	ShippingCost decimal.Decimal  `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	FreeShipping bool             `gorm:"column:free_shipping;not null;default:false"`
	Stock        int              `gorm:"column:stock;not null;default:0"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the sale price when it undercuts the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price) {
		return *p.SalePrice
	}
	return p.Price
}
