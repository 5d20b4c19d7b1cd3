// Package checkout turns a buyer's cart into a submitted order with one
// settlement unit per merchant.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/internal/checkout/split"
	"github.com/angelmondragon/escrowmarket/internal/marketsettings"
	"github.com/angelmondragon/escrowmarket/internal/notifications"
	"github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/metrics"
	"github.com/angelmondragon/escrowmarket/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes order placement.
type Service interface {
	PlaceOrder(ctx context.Context, caller actor.Actor, input PlaceOrderInput) (*orders.OrderDTO, error)
}

// PlaceOrderInput is the buyer's cart plus payment and delivery choices.
// Prices are always read from the catalog.
type PlaceOrderInput struct {
	Items            []split.CartItem
	DeliveryType     enums.DeliveryType
	PaymentMethod    enums.PaymentMethod
	PaymentReference *string
	PaymentProofRef  *string
	Address          *types.Address
}

// ServiceParams groups the checkout collaborators.
type ServiceParams struct {
	TxRunner   txRunner
	Catalog    CatalogRepository
	Orders     orders.Repository
	Settings   marketsettings.Source
	Dispatcher notifications.Dispatcher
	Metrics    *metrics.EscrowMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	tx         txRunner
	catalog    CatalogRepository
	orders     orders.Repository
	settings   marketsettings.Source
	dispatcher notifications.Dispatcher
	metrics    *metrics.EscrowMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings source required")
	}
	if params.Dispatcher == nil {
		params.Dispatcher = notifications.Discard{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		tx:         params.TxRunner,
		catalog:    params.Catalog,
		orders:     params.Orders,
		settings:   params.Settings,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        params.Clock,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, caller actor.Actor, input PlaceOrderInput) (*orders.OrderDTO, error) {
	buyer, ok := caller.(actor.Buyer)
	if !ok {
		if caller == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer role required")
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, buyer.UserID.String())
	now := s.now().UTC()
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		products, err := catalog.FindByIDs(ctx, productIDs(input.Items))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
		}
		lines, err := split.BuildLines(input.Items, products)
		if err != nil {
			return err
		}
		result, err := split.Calculate(split.Input{
			Lines:        lines,
			DeliveryType: input.DeliveryType,
			FeePct:       snap.PlatformFeePct,
		})
		if err != nil {
			return err
		}

		for productID, qty := range quantities(lines) {
			if err := catalog.DecrementStock(ctx, productID, qty); err != nil {
				return wrapDependency(err, "reserve stock")
			}
		}

		order = newOrder(buyer, input, snap, result, now)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return nil
	})
	if err != nil {
		s.metrics.Observe(enums.TransitionKindOrderPlaced.String(), outcomeOf(err))
		return nil, err
	}

	s.metrics.Observe(enums.TransitionKindOrderPlaced.String(), metrics.OutcomeApplied)
	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"units":       len(order.Units),
		"grand_total": order.GrandTotal.StringFixed(2),
	})
	s.logg.Info(ctx, "order placed")
	s.dispatcher.Dispatch(ctx, notifications.Obligations(enums.TransitionKindOrderPlaced, order, nil))

	dto := orders.NewOrderDTO(order, nil)
	return &dto, nil
}

func validateInput(input *PlaceOrderInput) error {
	if !input.DeliveryType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.DeliveryType == enums.DeliveryTypeDelivery {
		if input.Address == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery orders require an address")
		}
		if err := input.Address.Validate(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address")
		}
	} else {
		input.Address = nil
	}
	input.PaymentReference = trimmed(input.PaymentReference)
	input.PaymentProofRef = trimmed(input.PaymentProofRef)
	return nil
}

func newOrder(buyer actor.Buyer, input PlaceOrderInput, snap marketsettings.Snapshot, result *split.Result, now time.Time) *models.Order {
	order := &models.Order{
		ID:                 uuid.New(),
		BuyerID:            buyer.UserID,
		PaymentMethod:      input.PaymentMethod,
		PaymentReference:   input.PaymentReference,
		PaymentProofRef:    input.PaymentProofRef,
		DeliveryType:       input.DeliveryType,
		Address:            input.Address,
		Currency:           snap.Currency,
		PlatformFeePct:     snap.PlatformFeePct,
		GrandTotal:         result.GrandTotal,
		Status:             enums.OrderStatusSubmitted,
		SubmissionDeadline: now.Add(snap.SubmissionWindow),
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if order.Currency == "" {
		order.Currency = "USD"
	}
	order.Units = make([]models.SettlementUnit, 0, len(result.Units))
	for _, unit := range result.Units {
		order.Units = append(order.Units, models.SettlementUnit{
			ID:             uuid.New(),
			OrderID:        order.ID,
			MerchantID:     unit.MerchantID,
			Position:       unit.Position,
			Items:          unit.Items,
			Subtotal:       unit.Subtotal,
			ShippingCost:   unit.ShippingCost,
			PlatformFee:    unit.PlatformFee,
			MerchantAmount: unit.MerchantAmount,
			Status:         enums.UnitStatusSubmitted,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return order
}

func productIDs(items []split.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func quantities(lines []split.Line) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		out[line.ProductID] += line.Quantity
	}
	return out
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func outcomeOf(err error) string {
	if pkgerrors.IsCode(err, pkgerrors.CodeDependency) || pkgerrors.As(err) == nil {
		return metrics.OutcomeFailed
	}
	return metrics.OutcomeRejected
}

func wrapDependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
