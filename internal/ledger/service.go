package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/pkg/db"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/money"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// Service records wallet movements. Record must run inside the transaction
// that mutates the wallet so the journal and the balance never diverge.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEvent, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, params pagination.Params) (*EventList, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data a ledger event requires.
type RecordInput struct {
	MerchantID      uuid.UUID             `json:"merchant_id"`
	OrderID         *uuid.UUID            `json:"order_id,omitempty"`
	UnitID          *uuid.UUID            `json:"unit_id,omitempty"`
	PayoutRequestID *uuid.UUID            `json:"payout_request_id,omitempty"`
	ActorID         uuid.UUID             `json:"actor_id"`
	Type            enums.LedgerEventType `json:"type"`
	Amount          decimal.Decimal       `json:"amount"`
	BalanceAfter    decimal.Decimal       `json:"balance_after"`
	Metadata        json.RawMessage       `json:"metadata,omitempty"`
}

// EventDTO is the wire shape of a ledger row.
type EventDTO struct {
	ID              uuid.UUID             `json:"id"`
	OrderID         *uuid.UUID            `json:"order_id,omitempty"`
	UnitID          *uuid.UUID            `json:"unit_id,omitempty"`
	PayoutRequestID *uuid.UUID            `json:"payout_request_id,omitempty"`
	Type            enums.LedgerEventType `json:"type"`
	Amount          decimal.Decimal       `json:"amount"`
	BalanceAfter    decimal.Decimal       `json:"balance_after"`
	Metadata        json.RawMessage       `json:"metadata,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func toEventDTO(e models.LedgerEvent) EventDTO {
	return EventDTO{
		ID:              e.ID,
		OrderID:         e.OrderID,
		UnitID:          e.UnitID,
		PayoutRequestID: e.PayoutRequestID,
		Type:            e.Type,
		Amount:          e.Amount,
		BalanceAfter:    e.BalanceAfter,
		Metadata:        e.Metadata,
		CreatedAt:       e.CreatedAt,
	}
}

// EventList is a page of ledger events.
type EventList struct {
	Events     []EventDTO `json:"events"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.LedgerEvent, error) {
	if input.MerchantID == uuid.Nil {
		return nil, fmt.Errorf("merchant id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("ledger amount must be positive")
	}
	if input.Type == enums.LedgerEventTypeReleaseCredit && input.UnitID == nil {
		return nil, fmt.Errorf("release credit requires a unit id")
	}
	if input.Type != enums.LedgerEventTypeReleaseCredit && input.PayoutRequestID == nil {
		return nil, fmt.Errorf("%s requires a payout request id", input.Type)
	}

	event := &models.LedgerEvent{
		ID:              uuid.New(),
		MerchantID:      input.MerchantID,
		OrderID:         input.OrderID,
		UnitID:          input.UnitID,
		PayoutRequestID: input.PayoutRequestID,
		ActorID:         input.ActorID,
		Type:            input.Type,
		Amount:          money.Round2(input.Amount),
		BalanceAfter:    money.Round2(input.BalanceAfter),
		Metadata:        input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeStaleState, "unit already credited")
		}
		return nil, err
	}
	return event, nil
}

func (s *service) ListByMerchant(ctx context.Context, merchantID uuid.UUID, params pagination.Params) (*EventList, error) {
	if merchantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	events, next, err := s.repo.ListByMerchant(ctx, merchantID, params)
	if err != nil {
		return nil, err
	}
	list := &EventList{Events: make([]EventDTO, 0, len(events))}
	for _, e := range events {
		list.Events = append(list.Events, toEventDTO(e))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}
