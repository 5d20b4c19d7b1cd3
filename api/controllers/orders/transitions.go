package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/api/middleware"
	"github.com/angelmondragon/escrowmarket/api/responses"
	"github.com/angelmondragon/escrowmarket/api/validators"
	"github.com/angelmondragon/escrowmarket/internal/escrow"
	internalorders "github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
)

type paymentProofBody struct {
	ProofRef string `json:"proof_ref" validate:"max=512"`
}

type shipBody struct {
	GuideRef string `json:"guide_ref" validate:"max=256"`
}

type disputeBody struct {
	Reason      enums.DisputeReason `json:"reason"`
	Description string              `json:"description" validate:"max=2000"`
}

type reviewBody struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}

type noteBody struct {
	Note string `json:"note" validate:"max=2000"`
}

type resolveBody struct {
	Verdict enums.DisputeVerdict `json:"verdict"`
	Note    string               `json:"note" validate:"max=2000"`
}

// orderAction runs an order-level transition.
type orderAction func(ctx context.Context, caller actor.Actor, orderID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error)

// unitAction runs a transition on one merchant's settlement unit.
type unitAction func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error)

func handleOrder(svc escrow.Service, logg *logger.Logger, action orderAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		dto, err := action(ctx, middleware.ActorFromContext(ctx), orderID, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func handleUnit(svc escrow.Service, logg *logger.Logger, action unitAction) http.HandlerFunc {
	return handleOrder(svc, logg, func(ctx context.Context, caller actor.Actor, orderID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		merchantID, err := validators.ParseUUIDParam(r, "merchantId")
		if err != nil {
			return nil, err
		}
		if logg != nil {
			ctx = logg.WithMerchantID(ctx, merchantID.String())
		}
		return action(ctx, caller, orderID, merchantID, r)
	})
}

// SubmitPaymentProof attaches the buyer's proof of payment to a submitted order.
func SubmitPaymentProof(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleOrder(svc, logg, func(ctx context.Context, caller actor.Actor, orderID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body paymentProofBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SubmitPaymentProof(ctx, caller, orderID, validators.SanitizeString(body.ProofRef, 512))
	})
}

func StartProcessing(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, _ *http.Request) (*internalorders.OrderDTO, error) {
		return svc.StartProcessing(ctx, caller, orderID, merchantID)
	})
}

func Ship(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body shipBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Ship(ctx, caller, orderID, merchantID, validators.SanitizeString(body.GuideRef, 256))
	})
}

// ConfirmReceipt releases the unit's funds to the merchant wallet.
func ConfirmReceipt(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, _ *http.Request) (*internalorders.OrderDTO, error) {
		return svc.ConfirmReceipt(ctx, caller, orderID, merchantID)
	})
}

func OpenDispute(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body disputeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.OpenDispute(ctx, caller, orderID, merchantID, escrow.DisputeInput{
			Reason:      body.Reason,
			Description: validators.SanitizeString(body.Description, 2000),
		})
	})
}

func SubmitReview(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body reviewBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SubmitReview(ctx, caller, orderID, merchantID, escrow.ReviewInput{
			Rating:  body.Rating,
			Comment: validators.SanitizeString(body.Comment, 2000),
		})
	})
}

// SubmitBuyerReview lets the merchant rate the buyer on a released unit.
func SubmitBuyerReview(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body reviewBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SubmitBuyerReview(ctx, caller, orderID, merchantID, escrow.ReviewInput{
			Rating:  body.Rating,
			Comment: validators.SanitizeString(body.Comment, 2000),
		})
	})
}

func AdminVerify(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleOrder(svc, logg, func(ctx context.Context, caller actor.Actor, orderID uuid.UUID, _ *http.Request) (*internalorders.OrderDTO, error) {
		return svc.Verify(ctx, caller, orderID)
	})
}

func AdminReject(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleOrder(svc, logg, func(ctx context.Context, caller actor.Actor, orderID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body noteBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Reject(ctx, caller, orderID, validators.SanitizeString(body.Note, 2000))
	})
}

func AdminResolveDispute(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return handleUnit(svc, logg, func(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, r *http.Request) (*internalorders.OrderDTO, error) {
		var body resolveBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ResolveDispute(ctx, caller, orderID, merchantID, escrow.ResolutionInput{
			Verdict: body.Verdict,
			Note:    validators.SanitizeString(body.Note, 2000),
		})
	})
}
