package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// PayoutRequest is a merchant withdrawal. Amount is debited from the wallet at
// request time and never changes afterwards.
type PayoutRequest struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID  uuid.UUID          `gorm:"column:merchant_id;type:uuid;not null"`
	Amount      decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Status      enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Note        *string            `gorm:"column:note"`
	ProcessedBy *uuid.UUID         `gorm:"column:processed_by;type:uuid"`
	RequestedAt time.Time          `gorm:"column:requested_at;not null"`
	ProcessedAt *time.Time         `gorm:"column:processed_at"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
