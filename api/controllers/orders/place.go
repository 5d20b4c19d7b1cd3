package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/api/middleware"
	"github.com/angelmondragon/escrowmarket/api/responses"
	"github.com/angelmondragon/escrowmarket/api/validators"
	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/checkout/split"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/types"
)

type placeOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type placeOrderBody struct {
	Items            []placeOrderItem    `json:"items" validate:"required,max=100"`
	DeliveryType     enums.DeliveryType  `json:"delivery_type" validate:"required"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentReference *string             `json:"payment_reference" validate:"omitempty,max=128"`
	PaymentProofRef  *string             `json:"payment_proof_ref" validate:"omitempty,max=512"`
	Address          *types.Address      `json:"address"`
}

// Place turns the buyer's cart into an order split per merchant.
func Place(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var body placeOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]split.CartItem, 0, len(body.Items))
		for _, item := range body.Items {
			items = append(items, split.CartItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		dto, err := svc.PlaceOrder(r.Context(), middleware.ActorFromContext(r.Context()), checkout.PlaceOrderInput{
			Items:            items,
			DeliveryType:     body.DeliveryType,
			PaymentMethod:    body.PaymentMethod,
			PaymentReference: body.PaymentReference,
			PaymentProofRef:  body.PaymentProofRef,
			Address:          body.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}
