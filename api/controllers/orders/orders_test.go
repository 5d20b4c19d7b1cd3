package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/api/middleware"
	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/escrow"
	internalorders "github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// stubEscrow records the last call and returns a canned order.
type stubEscrow struct {
	escrow.Service
	calls      []string
	caller     actor.Actor
	orderID    uuid.UUID
	merchantID uuid.UUID
	dispute    escrow.DisputeInput
	resolution escrow.ResolutionInput
	guideRef   string
	err        error
}

func (s *stubEscrow) record(name string, caller actor.Actor, orderID, merchantID uuid.UUID) (*internalorders.OrderDTO, error) {
	s.calls = append(s.calls, name)
	s.caller = caller
	s.orderID = orderID
	s.merchantID = merchantID
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID, Status: enums.DisplayStatusVerified}, nil
}

func (s *stubEscrow) Ship(_ context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, guideRef string) (*internalorders.OrderDTO, error) {
	s.guideRef = guideRef
	return s.record("ship", caller, orderID, merchantID)
}

func (s *stubEscrow) ConfirmReceipt(_ context.Context, caller actor.Actor, orderID, merchantID uuid.UUID) (*internalorders.OrderDTO, error) {
	return s.record("confirm", caller, orderID, merchantID)
}

func (s *stubEscrow) OpenDispute(_ context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input escrow.DisputeInput) (*internalorders.OrderDTO, error) {
	s.dispute = input
	return s.record("dispute", caller, orderID, merchantID)
}

func (s *stubEscrow) ResolveDispute(_ context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input escrow.ResolutionInput) (*internalorders.OrderDTO, error) {
	s.resolution = input
	return s.record("resolve", caller, orderID, merchantID)
}

func (s *stubEscrow) Verify(_ context.Context, caller actor.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	return s.record("verify", caller, orderID, uuid.Nil)
}

type stubOrders struct {
	internalorders.Service
	merchantStatus *enums.UnitStatus
	adminStatus    enums.OrderStatus
}

func (s *stubOrders) ListForBuyer(context.Context, actor.Actor, pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{Orders: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrders) ListForMerchant(_ context.Context, _ actor.Actor, status *enums.UnitStatus, _ pagination.Params) (*internalorders.MerchantUnitList, error) {
	s.merchantStatus = status
	return &internalorders.MerchantUnitList{Units: []internalorders.MerchantUnitDTO{}}, nil
}

func (s *stubOrders) ListForAdmin(_ context.Context, _ actor.Actor, status enums.OrderStatus, _ pagination.Params) (*internalorders.OrderList, error) {
	s.adminStatus = status
	return &internalorders.OrderList{Orders: []internalorders.OrderDTO{}}, nil
}

type stubCheckout struct {
	input checkout.PlaceOrderInput
}

func (s *stubCheckout) PlaceOrder(_ context.Context, _ actor.Actor, input checkout.PlaceOrderInput) (*internalorders.OrderDTO, error) {
	s.input = input
	return &internalorders.OrderDTO{ID: uuid.New(), GrandTotal: decimal.RequireFromString("85")}, nil
}

func serve(t *testing.T, method, pattern, target, body string, caller actor.Actor, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if caller != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), caller))
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

const unitPattern = "/orders/{orderId}/units/{merchantId}/"

func TestShipPassesRouteIdentifiers(t *testing.T) {
	svc := &stubEscrow{}
	orderID, merchantID := uuid.New(), uuid.New()
	caller := actor.Merchant{MerchantID: merchantID}

	resp := serve(t, http.MethodPost, unitPattern+"ship", "/orders/"+orderID.String()+"/units/"+merchantID.String()+"/ship",
		`{"guide_ref":"  TRK-1  "}`, caller, Ship(svc, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.orderID != orderID || svc.merchantID != merchantID {
		t.Fatalf("route identifiers not forwarded")
	}
	if svc.caller != caller {
		t.Fatalf("expected caller forwarded, got %#v", svc.caller)
	}
	if svc.guideRef != "TRK-1" {
		t.Fatalf("expected trimmed guide ref, got %q", svc.guideRef)
	}
}

func TestUnitActionRejectsMalformedIdentifiers(t *testing.T) {
	svc := &stubEscrow{}
	resp := serve(t, http.MethodPost, unitPattern+"confirm", "/orders/not-a-uuid/units/"+uuid.NewString()+"/confirm",
		"", actor.Buyer{UserID: uuid.New()}, ConfirmReceipt(svc, nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestUnitActionMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeInvalidTransition, "unit is not shipped"), http.StatusUnprocessableEntity},
		{pkgerrors.New(pkgerrors.CodeForbidden, "not the owner"), http.StatusForbidden},
		{pkgerrors.New(pkgerrors.CodeStaleState, "order changed"), http.StatusConflict},
		{pkgerrors.New(pkgerrors.CodeNotFound, "order not found"), http.StatusNotFound},
	}
	for _, tc := range cases {
		svc := &stubEscrow{err: tc.err}
		resp := serve(t, http.MethodPost, unitPattern+"confirm", "/orders/"+uuid.NewString()+"/units/"+uuid.NewString()+"/confirm",
			"", actor.Buyer{UserID: uuid.New()}, ConfirmReceipt(svc, nil))
		if resp.Code != tc.status {
			t.Fatalf("%v: expected %d got %d", tc.err, tc.status, resp.Code)
		}
		if errorCode(t, resp) != string(pkgerrors.As(tc.err).Code()) {
			t.Fatalf("%v: unexpected code %s", tc.err, errorCode(t, resp))
		}
	}
}

func TestOpenDisputeForwardsBody(t *testing.T) {
	svc := &stubEscrow{}
	resp := serve(t, http.MethodPost, unitPattern+"dispute", "/orders/"+uuid.NewString()+"/units/"+uuid.NewString()+"/dispute",
		`{"reason":"damaged","description":" box crushed "}`, actor.Buyer{UserID: uuid.New()}, OpenDispute(svc, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.dispute.Reason != enums.DisputeReasonDamaged || svc.dispute.Description != "box crushed" {
		t.Fatalf("unexpected dispute input %#v", svc.dispute)
	}
}

func TestOpenDisputeRejectsUnknownFields(t *testing.T) {
	svc := &stubEscrow{}
	resp := serve(t, http.MethodPost, unitPattern+"dispute", "/orders/"+uuid.NewString()+"/units/"+uuid.NewString()+"/dispute",
		`{"reason":"damaged","refund":true}`, actor.Buyer{UserID: uuid.New()}, OpenDispute(svc, nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestAdminResolveForwardsVerdict(t *testing.T) {
	svc := &stubEscrow{}
	resp := serve(t, http.MethodPost, unitPattern+"resolve", "/orders/"+uuid.NewString()+"/units/"+uuid.NewString()+"/resolve",
		`{"verdict":"favor_buyer","note":"photos confirm damage"}`, actor.Admin{UserID: uuid.New()}, AdminResolveDispute(svc, nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.resolution.Verdict != enums.DisputeVerdictFavorBuyer || svc.resolution.Note != "photos confirm damage" {
		t.Fatalf("unexpected resolution %#v", svc.resolution)
	}
}

func TestPlaceReturnsCreated(t *testing.T) {
	svc := &stubCheckout{}
	productID := uuid.New()
	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":2}],"delivery_type":"pickup","payment_method":"bank_transfer"}`

	resp := serve(t, http.MethodPost, "/orders", "/orders", body, actor.Buyer{UserID: uuid.New()}, Place(svc, nil))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.input.Items) != 1 || svc.input.Items[0].ProductID != productID || svc.input.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %#v", svc.input.Items)
	}
	if svc.input.DeliveryType != enums.DeliveryTypePickup {
		t.Fatalf("unexpected delivery type %s", svc.input.DeliveryType)
	}
}

func TestListDispatchesOnCaller(t *testing.T) {
	svc := &stubOrders{}

	resp := serve(t, http.MethodGet, "/orders", "/orders?status=shipped", "", actor.Merchant{MerchantID: uuid.New()}, List(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.merchantStatus == nil || *svc.merchantStatus != enums.UnitStatusShipped {
		t.Fatalf("expected shipped filter, got %v", svc.merchantStatus)
	}

	resp = serve(t, http.MethodGet, "/orders", "/orders", "", actor.Admin{UserID: uuid.New()}, List(svc, nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin on buyer list, got %d", resp.Code)
	}

	resp = serve(t, http.MethodGet, "/orders", "/orders?limit=1000", "", actor.Buyer{UserID: uuid.New()}, List(svc, nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range limit, got %d", resp.Code)
	}
}

func TestAdminListDefaultsToSubmitted(t *testing.T) {
	svc := &stubOrders{}
	resp := serve(t, http.MethodGet, "/orders", "/orders", "", actor.Admin{UserID: uuid.New()}, AdminList(svc, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.adminStatus != enums.OrderStatusSubmitted {
		t.Fatalf("expected submitted queue, got %s", svc.adminStatus)
	}
}
