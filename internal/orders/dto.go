package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	"github.com/angelmondragon/escrowmarket/pkg/types"
)

// OrderDTO is the read model returned to buyers and admins.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	BuyerID            uuid.UUID           `json:"buyer_id"`
	Status             enums.DisplayStatus `json:"status"`
	OrderStatus        enums.OrderStatus   `json:"order_status"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method"`
	PaymentReference   *string             `json:"payment_reference,omitempty"`
	PaymentProofRef    *string             `json:"payment_proof_ref,omitempty"`
	DeliveryType       enums.DeliveryType  `json:"delivery_type"`
	Address            *types.Address      `json:"address,omitempty"`
	Currency           string              `json:"currency"`
	PlatformFeePct     decimal.Decimal     `json:"platform_fee_pct"`
	GrandTotal         decimal.Decimal     `json:"grand_total"`
	SubmissionDeadline time.Time           `json:"submission_deadline"`
	RejectionNote      *string             `json:"rejection_note,omitempty"`
	Version            int64               `json:"version"`
	Units              []UnitDTO           `json:"units"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// UnitDTO exposes a settlement unit.
type UnitDTO struct {
	ID                 uuid.UUID                `json:"id"`
	MerchantID         uuid.UUID                `json:"merchant_id"`
	Status             enums.UnitStatus         `json:"status"`
	Items              []models.UnitItem        `json:"items"`
	Subtotal           decimal.Decimal          `json:"subtotal"`
	ShippingCost       decimal.Decimal          `json:"shipping_cost"`
	PlatformFee        decimal.Decimal          `json:"platform_fee"`
	MerchantAmount     decimal.Decimal          `json:"merchant_amount"`
	ShippingGuideRef   *string                  `json:"shipping_guide_ref,omitempty"`
	Review             *models.Review           `json:"review,omitempty"`
	BuyerReview        *models.Review           `json:"buyer_review,omitempty"`
	PayoutStatus       *enums.UnitPayoutStatus  `json:"payout_status,omitempty"`
	DisputeReason      *enums.DisputeReason     `json:"dispute_reason,omitempty"`
	DisputeDescription *string                  `json:"dispute_description,omitempty"`
	DisputeOpenedAt    *time.Time               `json:"dispute_opened_at,omitempty"`
	DisputeResolution  *enums.DisputeResolution `json:"dispute_resolution,omitempty"`
	DisputeNote        *string                  `json:"dispute_note,omitempty"`
	DisputeResolvedAt  *time.Time               `json:"dispute_resolved_at,omitempty"`
	ReleasedAt         *time.Time               `json:"released_at,omitempty"`
	Version            int64                    `json:"version"`
}

// OrderList wraps a page of orders plus the next cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// MerchantUnitDTO is a unit as listed for its merchant.
type MerchantUnitDTO struct {
	UnitDTO
	OrderID      uuid.UUID          `json:"order_id"`
	DeliveryType enums.DeliveryType `json:"delivery_type"`
	OrderStatus  enums.OrderStatus  `json:"order_status"`
	CreatedAt    time.Time          `json:"created_at"`
}

// MerchantUnitList wraps a page of merchant units.
type MerchantUnitList struct {
	Units      []MerchantUnitDTO `json:"units"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps an order and derives its display status. When onlyMerchant
// is set, units of other merchants are left out.
func NewOrderDTO(order *models.Order, onlyMerchant *uuid.UUID) OrderDTO {
	dto := OrderDTO{
		ID:                 order.ID,
		BuyerID:            order.BuyerID,
		Status:             DisplayStatus(order),
		OrderStatus:        order.Status,
		PaymentMethod:      order.PaymentMethod,
		PaymentReference:   order.PaymentReference,
		PaymentProofRef:    order.PaymentProofRef,
		DeliveryType:       order.DeliveryType,
		Address:            order.Address,
		Currency:           order.Currency,
		PlatformFeePct:     order.PlatformFeePct,
		GrandTotal:         order.GrandTotal,
		SubmissionDeadline: order.SubmissionDeadline,
		RejectionNote:      order.RejectionNote,
		Version:            order.Version,
		Units:              make([]UnitDTO, 0, len(order.Units)),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for i := range order.Units {
		unit := &order.Units[i]
		if onlyMerchant != nil && unit.MerchantID != *onlyMerchant {
			continue
		}
		dto.Units = append(dto.Units, NewUnitDTO(unit))
	}
	return dto
}

// NewUnitDTO maps a settlement unit.
func NewUnitDTO(unit *models.SettlementUnit) UnitDTO {
	return UnitDTO{
		ID:                 unit.ID,
		MerchantID:         unit.MerchantID,
		Status:             unit.Status,
		Items:              unit.Items,
		Subtotal:           unit.Subtotal,
		ShippingCost:       unit.ShippingCost,
		PlatformFee:        unit.PlatformFee,
		MerchantAmount:     unit.MerchantAmount,
		ShippingGuideRef:   unit.ShippingGuideRef,
		Review:             unit.Review,
		BuyerReview:        unit.BuyerReview,
		PayoutStatus:       unit.PayoutStatus,
		DisputeReason:      unit.DisputeReason,
		DisputeDescription: unit.DisputeDescription,
		DisputeOpenedAt:    unit.DisputeOpenedAt,
		DisputeResolution:  unit.DisputeResolution,
		DisputeNote:        unit.DisputeNote,
		DisputeResolvedAt:  unit.DisputeResolvedAt,
		ReleasedAt:         unit.ReleasedAt,
		Version:            unit.Version,
	}
}
