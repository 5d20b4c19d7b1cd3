package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// Repository manages persistence for ledger events. Events are never updated.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, params pagination.Params) ([]models.LedgerEvent, *pagination.Cursor, error)
	CountByUnit(ctx context.Context, unitID uuid.UUID, eventType enums.LedgerEventType) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, params pagination.Params) ([]models.LedgerEvent, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Where("merchant_id = ?", merchantID)
	var events []models.LedgerEvent
	if err := pagination.Default.Apply(query, cursor, params.Limit).Find(&events).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(events, params.Limit, func(e models.LedgerEvent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, next, nil
}

func (r *repository) CountByUnit(ctx context.Context, unitID uuid.UUID, eventType enums.LedgerEventType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEvent{}).
		Where("unit_id = ? AND type = ?", unitID, eventType).
		Count(&count).Error
	return count, err
}
