package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// Service exposes the order read paths.
type Service interface {
	Get(ctx context.Context, caller actor.Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListForBuyer(ctx context.Context, caller actor.Actor, params pagination.Params) (*OrderList, error)
	ListForAdmin(ctx context.Context, caller actor.Actor, status enums.OrderStatus, params pagination.Params) (*OrderList, error)
	ListForMerchant(ctx context.Context, caller actor.Actor, status *enums.UnitStatus, params pagination.Params) (*MerchantUnitList, error)
}

type service struct {
	repo Repository
}

// NewService builds the orders read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, caller actor.Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, MapLoadError(err)
	}

	switch v := caller.(type) {
	case actor.Admin:
		dto := NewOrderDTO(order, nil)
		return &dto, nil
	case actor.Buyer:
		if order.BuyerID != v.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		dto := NewOrderDTO(order, nil)
		return &dto, nil
	case actor.Merchant:
		if _, ok := order.Unit(v.MerchantID); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		dto := NewOrderDTO(order, &v.MerchantID)
		return &dto, nil
	case actor.System:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "system actor cannot read orders")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
	}
}

func (s *service) ListForBuyer(ctx context.Context, caller actor.Actor, params pagination.Params) (*OrderList, error) {
	buyer, ok := caller.(actor.Buyer)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer role required")
	}
	rows, next, err := s.repo.ListBuyerOrders(ctx, buyer.UserID, params)
	if err != nil {
		return nil, wrapListError(err)
	}
	return toOrderList(rows, next), nil
}

func (s *service) ListForAdmin(ctx context.Context, caller actor.Actor, status enums.OrderStatus, params pagination.Params) (*OrderList, error) {
	if _, ok := caller.(actor.Admin); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	rows, next, err := s.repo.ListByStatus(ctx, status, params)
	if err != nil {
		return nil, wrapListError(err)
	}
	return toOrderList(rows, next), nil
}

func (s *service) ListForMerchant(ctx context.Context, caller actor.Actor, status *enums.UnitStatus, params pagination.Params) (*MerchantUnitList, error) {
	merchant, ok := caller.(actor.Merchant)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "merchant role required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit status")
	}
	rows, next, err := s.repo.ListMerchantUnits(ctx, merchant.MerchantID, status, params)
	if err != nil {
		return nil, wrapListError(err)
	}

	list := &MerchantUnitList{Units: make([]MerchantUnitDTO, 0, len(rows))}
	for i := range rows {
		row := &rows[i]
		list.Units = append(list.Units, MerchantUnitDTO{
			UnitDTO:      NewUnitDTO(&row.SettlementUnit),
			OrderID:      row.OrderID,
			DeliveryType: row.DeliveryType,
			OrderStatus:  row.OrderStatus,
			CreatedAt:    row.CreatedAt,
		})
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func toOrderList(rows []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		list.Orders = append(list.Orders, NewOrderDTO(&rows[i], nil))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

// MapLoadError turns repository lookups into typed errors.
func MapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func wrapListError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
}
