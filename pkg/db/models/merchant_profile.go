package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MerchantProfile embeds the merchant wallet. ID matches the merchant's user id.
type MerchantProfile struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName   string          `gorm:"column:display_name;not null"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
