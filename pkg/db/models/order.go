package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
	"github.com/angelmondragon/escrowmarket/pkg/money"
	"github.com/angelmondragon/escrowmarket/pkg/types"
)

// Order is the buyer-facing aggregate holding one settlement unit per merchant.
// Status only moves while the order is submitted; afterwards progress lives on
// the units.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentReference   *string             `gorm:"column:payment_reference"`
	PaymentProofRef    *string             `gorm:"column:payment_proof_ref"`
	DeliveryType       enums.DeliveryType  `gorm:"column:delivery_type;type:text;not null"`
	Address            *types.Address      `gorm:"column:address;type:jsonb;serializer:json"`
	Currency           string              `gorm:"column:currency;type:text;not null;default:'USD'"`
	PlatformFeePct     decimal.Decimal     `gorm:"column:platform_fee_pct;type:numeric(5,2);not null"`
	GrandTotal         decimal.Decimal     `gorm:"column:grand_total;type:numeric(12,2);not null"`
	Status             enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'submitted'"`
	SubmissionDeadline time.Time           `gorm:"column:submission_deadline;not null"`
	RejectionNote      *string             `gorm:"column:rejection_note"`
	VerifiedAt         *time.Time          `gorm:"column:verified_at"`
	VerifiedBy         *uuid.UUID          `gorm:"column:verified_by;type:uuid"`
	RejectedAt         *time.Time          `gorm:"column:rejected_at"`
	ExpiredAt          *time.Time          `gorm:"column:expired_at"`
	Version            int64               `gorm:"column:version;not null;default:1"`
	Units              []SettlementUnit    `gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// RecomputeGrandTotal sums subtotal plus shipping across units.
func (o *Order) RecomputeGrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, unit := range o.Units {
		total = total.Add(unit.Subtotal).Add(unit.ShippingCost)
	}
	return money.Round2(total)
}

// Unit returns the settlement unit owned by merchantID.
func (o *Order) Unit(merchantID uuid.UUID) (*SettlementUnit, bool) {
	for i := range o.Units {
		if o.Units[i].MerchantID == merchantID {
			return &o.Units[i], true
		}
	}
	return nil, false
}

// MerchantIDs lists the merchants in cart encounter order.
func (o *Order) MerchantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Units))
	for _, unit := range o.Units {
		ids = append(ids, unit.MerchantID)
	}
	return ids
}
