package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

// CatalogRepository reads catalog rows and reserves or returns their stock.
type CatalogRepository interface {
	WithTx(tx *gorm.DB) CatalogRepository
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository builds a catalog repository bound to the provided DB.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) WithTx(tx *gorm.DB) CatalogRepository {
	if tx == nil {
		return r
	}
	return &catalogRepository{db: tx}
}

func (r *catalogRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// DecrementStock takes qty units only when enough stock remains, so two
// buyers racing for the last unit cannot both succeed.
func (r *catalogRepository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND stock >= ?", productID, true, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains unavailable items").
			WithDetails(map[string]any{"product_id": productID, "reason": "out_of_stock"})
	}
	return nil
}

// IncrementStock returns qty units reserved by an order that never got paid.
// A product removed from the catalog since placement is skipped.
func (r *catalogRepository) IncrementStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}
