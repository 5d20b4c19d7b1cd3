package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/money"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// Repository persists merchant wallets and payout requests. Balance changes
// are single conditional statements so concurrent writers cannot overdraw.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, merchantID uuid.UUID) (*models.MerchantProfile, error)
	LockProfile(ctx context.Context, merchantID uuid.UUID) (*models.MerchantProfile, error)
	AddBalance(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	DebitBalance(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	CreatePayout(ctx context.Context, payout *models.PayoutRequest) error
	FindPayout(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	HasPendingPayout(ctx context.Context, merchantID uuid.UUID) (bool, error)
	ClosePayout(ctx context.Context, payout *models.PayoutRequest) error
	ListPayouts(ctx context.Context, filter PayoutFilter, params pagination.Params) ([]models.PayoutRequest, *pagination.Cursor, error)
}

// PayoutFilter narrows payout listings. Zero values mean no filter.
type PayoutFilter struct {
	MerchantID *uuid.UUID
	Status     *enums.PayoutStatus
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the wallet repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfile(ctx context.Context, merchantID uuid.UUID) (*models.MerchantProfile, error) {
	var profile models.MerchantProfile
	if err := r.db.WithContext(ctx).Where("id = ?", merchantID).First(&profile).Error; err != nil {
		return nil, err
	}
	profile.WalletBalance = money.Round2(profile.WalletBalance)
	return &profile, nil
}

func (r *repository) LockProfile(ctx context.Context, merchantID uuid.UUID) (*models.MerchantProfile, error) {
	var profile models.MerchantProfile
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", merchantID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	profile.WalletBalance = money.Round2(profile.WalletBalance)
	return &profile, nil
}

func (r *repository) AddBalance(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MerchantProfile{}).
		Where("id = ?", merchantID).
		Updates(map[string]any{
			"wallet_balance": gorm.Expr("wallet_balance + ?", amount),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return r.balance(ctx, merchantID)
}

func (r *repository) DebitBalance(ctx context.Context, merchantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MerchantProfile{}).
		Where("id = ? AND wallet_balance >= ?", merchantID, amount).
		Updates(map[string]any{
			"wallet_balance": gorm.Expr("wallet_balance - ?", amount),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance too low")
	}
	return r.balance(ctx, merchantID)
}

func (r *repository) balance(ctx context.Context, merchantID uuid.UUID) (decimal.Decimal, error) {
	profile, err := r.FindProfile(ctx, merchantID)
	if err != nil {
		return decimal.Zero, err
	}
	return profile.WalletBalance, nil
}

func (r *repository) CreatePayout(ctx context.Context, payout *models.PayoutRequest) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindPayout(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) HasPendingPayout(ctx context.Context, merchantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("merchant_id = ? AND status = ?", merchantID, enums.PayoutStatusPending).
		Count(&count).Error
	return count > 0, err
}

// ClosePayout moves a pending request to its final status. A request that is
// no longer pending yields STALE_STATE.
func (r *repository) ClosePayout(ctx context.Context, payout *models.PayoutRequest) error {
	result := r.db.WithContext(ctx).
		Model(payout).
		Where("status = ?", enums.PayoutStatusPending).
		Select("status", "note", "processed_by", "processed_at", "updated_at").
		Updates(payout)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStaleState, "payout request was modified concurrently")
	}
	return nil
}

var payoutKeyset = pagination.Keyset{TimeColumn: "requested_at", IDColumn: "id"}

func (r *repository) ListPayouts(ctx context.Context, filter PayoutFilter, params pagination.Params) ([]models.PayoutRequest, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).Model(&models.PayoutRequest{})
	if filter.MerchantID != nil {
		query = query.Where("merchant_id = ?", *filter.MerchantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var payouts []models.PayoutRequest
	if err := payoutKeyset.Apply(query, cursor, params.Limit).Find(&payouts).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(payouts, params.Limit, func(p models.PayoutRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.RequestedAt, ID: p.ID}
	})
	return page, next, nil
}
