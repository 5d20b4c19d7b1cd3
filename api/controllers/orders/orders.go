// Package orders exposes order placement, reads and the escrow transitions
// over HTTP. Handlers only translate requests; every state and ownership
// rule lives in the services.
package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/escrowmarket/api/middleware"
	"github.com/angelmondragon/escrowmarket/api/responses"
	"github.com/angelmondragon/escrowmarket/api/validators"
	internalorders "github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// List returns the buyer's orders or the merchant's settlement units
// depending on the caller.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		caller := middleware.ActorFromContext(r.Context())
		switch caller.(type) {
		case actor.Buyer:
			list, err := svc.ListForBuyer(r.Context(), caller, params)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, list)
		case actor.Merchant:
			status, err := validators.ParseQueryEnum(r, "status", enums.UnitStatus.IsValid)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			list, err := svc.ListForMerchant(r.Context(), caller, status, params)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, list)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "buyer or merchant role required"))
		}
	}
}

// Detail returns one order scoped to what the caller may see.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AdminList returns orders in one status, defaulting to the verification queue.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := enums.OrderStatusSubmitted
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status = enums.OrderStatus(raw)
		}
		list, err := svc.ListForAdmin(r.Context(), middleware.ActorFromContext(r.Context()), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
