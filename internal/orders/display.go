package orders

import (
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// DisplayStatus derives the single status shown for an order. Before
// verification the order-level status wins; afterwards it is computed from
// unit state alone.
func DisplayStatus(order *models.Order) enums.DisplayStatus {
	switch order.Status {
	case enums.OrderStatusSubmitted:
		return enums.DisplayStatusSubmitted
	case enums.OrderStatusRejected:
		return enums.DisplayStatusRejected
	case enums.OrderStatusExpired:
		return enums.DisplayStatusExpired
	}
	return deriveFromUnits(order.Units)
}

func deriveFromUnits(units []models.SettlementUnit) enums.DisplayStatus {
	var disputed, shipped, processing bool
	released, rejected := 0, 0
	for _, unit := range units {
		switch unit.Status {
		case enums.UnitStatusDisputed:
			disputed = true
		case enums.UnitStatusShipped:
			shipped = true
		case enums.UnitStatusProcessing:
			processing = true
		case enums.UnitStatusReleased:
			released++
		case enums.UnitStatusRejected:
			rejected++
		}
	}

	settled := len(units) > 0 && released+rejected == len(units)
	switch {
	case disputed:
		return enums.DisplayStatusDisputed
	case settled && released > 0:
		return enums.DisplayStatusReleased
	case settled:
		return enums.DisplayStatusRejected
	case shipped:
		return enums.DisplayStatusShipped
	case processing:
		return enums.DisplayStatusProcessing
	default:
		return enums.DisplayStatusVerified
	}
}
