package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// LedgerEvent records an immutable wallet movement.
type LedgerEvent struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MerchantID      uuid.UUID             `gorm:"column:merchant_id;type:uuid;not null"`
	OrderID         *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	UnitID          *uuid.UUID            `gorm:"column:unit_id;type:uuid"`
	PayoutRequestID *uuid.UUID            `gorm:"column:payout_request_id;type:uuid"`
	ActorID         uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	Type            enums.LedgerEventType `gorm:"column:type;type:text;not null"`
	Amount          decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter    decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Metadata        json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
