package split

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

// CartItem is what a buyer submits: a product and a quantity.
type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// LineIssue describes why a cart item cannot be ordered.
type LineIssue struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

const (
	IssueNotFound    = "not_found"
	IssueInactive    = "inactive"
	IssueOutOfStock  = "out_of_stock"
	IssueBadQuantity = "invalid_quantity"
)

// BuildLines prices cart items from the catalog. Every item is checked before
// anything is returned so the buyer sees all problems at once; any problem
// rejects the whole cart.
func BuildLines(items []CartItem, catalog map[uuid.UUID]models.Product) ([]Line, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}

	requested := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			requested[item.ProductID] += item.Quantity
		}
	}

	var issues []LineIssue
	flagged := make(map[uuid.UUID]bool)
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			issues = append(issues, LineIssue{ProductID: item.ProductID, Reason: IssueBadQuantity})
			continue
		}
		product, ok := catalog[item.ProductID]
		reason := ""
		switch {
		case !ok:
			reason = IssueNotFound
		case !product.IsActive:
			reason = IssueInactive
		case product.Stock < requested[item.ProductID]:
			reason = IssueOutOfStock
		}
		if reason != "" {
			if !flagged[item.ProductID] {
				issues = append(issues, LineIssue{ProductID: item.ProductID, Reason: reason})
				flagged[item.ProductID] = true
			}
			continue
		}
		lines = append(lines, Line{
			ProductID:    product.ID,
			MerchantID:   product.MerchantID,
			Title:        product.Title,
			Quantity:     item.Quantity,
			UnitPrice:    product.Price,
			SalePrice:    product.SalePrice,
			ShippingCost: product.ShippingCost,
			FreeShipping: product.FreeShipping,
		})
	}

	if len(issues) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains unavailable items").
			WithDetails(map[string]any{"items": issues})
	}
	return lines, nil
}
