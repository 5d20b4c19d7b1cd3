package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// Repository persists orders and their settlement units. Update methods are
// compare-and-set on version and return STALE_STATE when the row moved.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order, expectedVersion int64) error
	UpdateUnit(ctx context.Context, unit *models.SettlementUnit, expectedVersion int64) error
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	ListMerchantUnits(ctx context.Context, merchantID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]MerchantUnitRow, *pagination.Cursor, error)
}

var orderMutableColumns = []string{
	"status", "payment_proof_ref", "rejection_note", "verified_at", "verified_by",
	"rejected_at", "expired_at", "version", "updated_at",
}

var unitMutableColumns = []string{
	"status", "shipping_guide_ref", "review", "buyer_review", "payout_status",
	"dispute_reason", "dispute_description", "dispute_opened_at", "dispute_resolution",
	"dispute_note", "dispute_resolved_at", "dispute_resolved_by", "processing_at",
	"shipped_at", "released_at", "version", "updated_at",
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Units) == 0 {
		return nil
	}
	for i := range order.Units {
		order.Units[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(&order.Units).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.Order, expectedVersion int64) error {
	result := r.db.WithContext(ctx).
		Model(order).
		Where("version = ?", expectedVersion).
		Select(orderMutableColumns).
		Omit(clause.Associations).
		Updates(order)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleState("order", order.ID)
	}
	return nil
}

func (r *repository) UpdateUnit(ctx context.Context, unit *models.SettlementUnit, expectedVersion int64) error {
	result := r.db.WithContext(ctx).
		Model(unit).
		Where("version = ?", expectedVersion).
		Select(unitMutableColumns).
		Updates(unit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleState("settlement unit", unit.ID)
	}
	return nil
}

func (r *repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND submission_deadline < ?", enums.OrderStatusSubmitted, now).
		Order("submission_deadline ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)
	return r.listOrders(query, params)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("status = ?", status)
	return r.listOrders(query, params)
}

func (r *repository) listOrders(query *gorm.DB, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var orders []models.Order
	err = pagination.Default.Apply(query, cursor, params.Limit).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Find(&orders).Error
	if err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(orders, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

var unitKeyset = pagination.Keyset{TimeColumn: "settlement_units.created_at", IDColumn: "settlement_units.id"}

// MerchantUnitRow joins a unit with the order fields a merchant needs.
type MerchantUnitRow struct {
	models.SettlementUnit
	DeliveryType enums.DeliveryType `gorm:"column:delivery_type"`
	OrderStatus  enums.OrderStatus  `gorm:"column:order_status"`
}

func (r *repository) ListMerchantUnits(ctx context.Context, merchantID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]MerchantUnitRow, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).
		Table("settlement_units").
		Select("settlement_units.*, orders.delivery_type AS delivery_type, orders.status AS order_status").
		Joins("JOIN orders ON orders.id = settlement_units.order_id").
		Where("settlement_units.merchant_id = ?", merchantID)
	if status != nil {
		query = query.Where("settlement_units.status = ?", *status)
	}

	var rows []MerchantUnitRow
	if err := unitKeyset.Apply(query, cursor, params.Limit).Scan(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(u MerchantUnitRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return page, next, nil
}

func staleState(entity string, id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeStaleState, entity+" was modified concurrently").
		WithDetails(map[string]any{"id": id})
}
