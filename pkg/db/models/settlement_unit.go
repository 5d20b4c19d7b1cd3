package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// SettlementUnit is the per-merchant slice of an order. PlatformFee and
// MerchantAmount are fixed at placement.
type SettlementUnit struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID            uuid.UUID                `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_settlement_units_order_merchant"`
	MerchantID         uuid.UUID                `gorm:"column:merchant_id;type:uuid;not null;uniqueIndex:ux_settlement_units_order_merchant"`
	Position           int                      `gorm:"column:position;not null"`
	Items              []UnitItem               `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal           decimal.Decimal          `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost       decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	PlatformFee        decimal.Decimal          `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	MerchantAmount     decimal.Decimal          `gorm:"column:merchant_amount;type:numeric(12,2);not null"`
	Status             enums.UnitStatus         `gorm:"column:status;type:text;not null;default:'submitted'"`
	ShippingGuideRef   *string                  `gorm:"column:shipping_guide_ref"`
	Review             *Review                  `gorm:"column:review;type:jsonb;serializer:json"`
	BuyerReview        *Review                  `gorm:"column:buyer_review;type:jsonb;serializer:json"`
	PayoutStatus       *enums.UnitPayoutStatus  `gorm:"column:payout_status;type:text"`
	DisputeReason      *enums.DisputeReason     `gorm:"column:dispute_reason;type:text"`
	DisputeDescription *string                  `gorm:"column:dispute_description"`
	DisputeOpenedAt    *time.Time               `gorm:"column:dispute_opened_at"`
	DisputeResolution  *enums.DisputeResolution `gorm:"column:dispute_resolution;type:text"`
	DisputeNote        *string                  `gorm:"column:dispute_note"`
	DisputeResolvedAt  *time.Time               `gorm:"column:dispute_resolved_at"`
	DisputeResolvedBy  *uuid.UUID               `gorm:"column:dispute_resolved_by;type:uuid"`
	ProcessingAt       *time.Time               `gorm:"column:processing_at"`
	ShippedAt          *time.Time               `gorm:"column:shipped_at"`
	ReleasedAt         *time.Time               `gorm:"column:released_at"`
	Version            int64                    `gorm:"column:version;not null;default:1"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// UnitItem snapshots one purchased line at placement prices.
type UnitItem struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Title          string          `json:"title"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	FreeShipping   bool            `json:"free_shipping"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

// Review is a one-shot rating left after release.
type Review struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}
