// Package split partitions a multi-merchant cart into settlement units and
// prices each unit's platform fee.
package split

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/money"
)

// Line is a priced cart line. Prices come from the catalog, never the client.
type Line struct {
	ProductID    uuid.UUID
	MerchantID   uuid.UUID
	Title        string
	Quantity     int
	UnitPrice    decimal.Decimal
	SalePrice    *decimal.Decimal
	ShippingCost decimal.Decimal
	FreeShipping bool
}

// EffectivePrice is the sale price when present and lower than the list price.
func (l Line) EffectivePrice() decimal.Decimal {
	if l.SalePrice != nil && l.SalePrice.IsPositive() && l.SalePrice.LessThan(l.UnitPrice) {
		return *l.SalePrice
	}
	return l.UnitPrice
}

// Input carries everything the calculator reads. FeePct is a percentage
// (5 means 5%) snapshotted by the caller.
type Input struct {
	Lines        []Line
	DeliveryType enums.DeliveryType
	FeePct       decimal.Decimal
}

// Unit is one merchant's share of the cart.
type Unit struct {
	MerchantID     uuid.UUID
	Position       int
	Items          []models.UnitItem
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	PlatformFee    decimal.Decimal
	MerchantAmount decimal.Decimal
}

// Gross is subtotal plus shipping.
func (u Unit) Gross() decimal.Decimal {
	return u.Subtotal.Add(u.ShippingCost)
}

// Result lists units in first-encounter merchant order.
type Result struct {
	Units      []Unit
	GrandTotal decimal.Decimal
}

// Calculate groups lines by merchant and prices every unit.
func Calculate(in Input) (*Result, error) {
	if len(in.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if !in.DeliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	if in.FeePct.IsNegative() || in.FeePct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform fee percentage out of range")
	}

	order := make([]uuid.UUID, 0)
	grouped := make(map[uuid.UUID][]Line)
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if line.MerchantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line missing merchant").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if _, seen := grouped[line.MerchantID]; !seen {
			order = append(order, line.MerchantID)
		}
		grouped[line.MerchantID] = append(grouped[line.MerchantID], line)
	}

	result := &Result{Units: make([]Unit, 0, len(order)), GrandTotal: decimal.Zero}
	for position, merchantID := range order {
		unit := priceUnit(merchantID, position, grouped[merchantID], in.DeliveryType, in.FeePct)
		result.GrandTotal = result.GrandTotal.Add(unit.Gross())
		result.Units = append(result.Units, unit)
	}
	result.GrandTotal = money.Round2(result.GrandTotal)
	return result, nil
}

func priceUnit(merchantID uuid.UUID, position int, lines []Line, delivery enums.DeliveryType, feePct decimal.Decimal) Unit {
	unit := Unit{
		MerchantID:   merchantID,
		Position:     position,
		Items:        make([]models.UnitItem, 0, len(lines)),
		Subtotal:     decimal.Zero,
		ShippingCost: decimal.Zero,
	}
	for _, line := range lines {
		price := line.EffectivePrice()
		lineTotal := money.Round2(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		shipping := decimal.Zero
		if delivery == enums.DeliveryTypeDelivery && !line.FreeShipping {
			shipping = line.ShippingCost
		}
		unit.Subtotal = unit.Subtotal.Add(lineTotal)
		unit.ShippingCost = unit.ShippingCost.Add(shipping)
		unit.Items = append(unit.Items, models.UnitItem{
			ProductID:      line.ProductID,
			Title:          line.Title,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			EffectivePrice: price,
			ShippingCost:   shipping,
			FreeShipping:   line.FreeShipping,
			LineTotal:      lineTotal,
		})
	}
	unit.Subtotal = money.Round2(unit.Subtotal)
	unit.ShippingCost = money.Round2(unit.ShippingCost)
	unit.PlatformFee = money.PercentOf(unit.Gross(), feePct)
	unit.MerchantAmount = money.Round2(unit.Gross().Sub(unit.PlatformFee))
	return unit
}
