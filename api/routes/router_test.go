package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/escrow"
	"github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/internal/ledger"
	"github.com/angelmondragon/escrowmarket/internal/wallet"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/auth"
	"github.com/angelmondragon/escrowmarket/pkg/config"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	"github.com/angelmondragon/escrowmarket/pkg/metrics"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
	"github.com/angelmondragon/escrowmarket/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubEscrow struct {
	escrow.Service
	shipped int
}

func (s *stubEscrow) Ship(_ context.Context, _ actor.Actor, orderID, _ uuid.UUID, _ string) (*orders.OrderDTO, error) {
	s.shipped++
	return &orders.OrderDTO{ID: orderID}, nil
}

func (s *stubEscrow) Verify(_ context.Context, _ actor.Actor, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID}, nil
}

type stubCheckout struct {
	placed int
}

func (s *stubCheckout) PlaceOrder(context.Context, actor.Actor, checkout.PlaceOrderInput) (*orders.OrderDTO, error) {
	s.placed++
	return &orders.OrderDTO{ID: uuid.New()}, nil
}

type stubWallet struct {
	wallet.Service
}

func (stubWallet) GetWallet(_ context.Context, caller actor.Actor) (*wallet.WalletDTO, error) {
	return &wallet.WalletDTO{MerchantID: caller.ID()}, nil
}

type stubLedger struct {
	ledger.Service
}

func (stubLedger) ListByMerchant(context.Context, uuid.UUID, pagination.Params) (*ledger.EventList, error) {
	return &ledger.EventList{Events: []ledger.EventDTO{}}, nil
}

type harness struct {
	handler  http.Handler
	cfg      *config.Config
	escrow   *stubEscrow
	checkout *stubCheckout
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	cfg := &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "router-secret", Issuer: "escrow-test", ExpirationMinutes: 30},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	reg := prometheus.NewRegistry()
	h := &harness{cfg: cfg, escrow: &stubEscrow{}, checkout: &stubCheckout{}}
	h.handler = NewRouter(Deps{
		Config:      cfg,
		DB:          stubPinger{},
		Redis:       rc,
		Idempotency: rc,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Checkout:    h.checkout,
		Escrow:      h.escrow,
		Wallet:      stubWallet{},
		Ledger:      stubLedger{},
	})
	return h
}

func (h *harness) token(t *testing.T, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(h.cfg.JWT, time.Now(), auth.AccessTokenPayload{SubjectID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token
}

func (h *harness) do(t *testing.T, method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.handler.ServeHTTP(resp, req)
	return resp
}

func TestPublicEndpoints(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/health/live", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))

	resp = h.do(t, http.MethodGet, "/health/ready", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(t, http.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "http_requests_total")
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/v1/wallet", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRoleGates(t *testing.T) {
	h := newHarness(t)
	orderID, merchantID := uuid.New(), uuid.New()
	shipPath := "/api/v1/orders/" + orderID.String() + "/units/" + merchantID.String() + "/ship"

	cases := []struct {
		name   string
		method string
		path   string
		role   enums.ActorRole
		want   int
	}{
		{"buyer cannot read wallet", http.MethodGet, "/api/v1/wallet", enums.ActorRoleBuyer, http.StatusForbidden},
		{"merchant reads wallet", http.MethodGet, "/api/v1/wallet", enums.ActorRoleMerchant, http.StatusOK},
		{"buyer cannot read ledger", http.MethodGet, "/api/v1/wallet/ledger", enums.ActorRoleBuyer, http.StatusForbidden},
		{"merchant reads ledger", http.MethodGet, "/api/v1/wallet/ledger", enums.ActorRoleMerchant, http.StatusOK},
		{"buyer cannot ship", http.MethodPost, shipPath, enums.ActorRoleBuyer, http.StatusForbidden},
		{"merchant ships", http.MethodPost, shipPath, enums.ActorRoleMerchant, http.StatusOK},
		{"merchant cannot verify", http.MethodPost, "/api/admin/v1/orders/" + orderID.String() + "/verify", enums.ActorRoleMerchant, http.StatusForbidden},
		{"admin verifies", http.MethodPost, "/api/admin/v1/orders/" + orderID.String() + "/verify", enums.ActorRoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		resp := h.do(t, tc.method, tc.path, h.token(t, tc.role), `{"guide_ref":"TRK"}`, nil)
		assert.Equal(t, tc.want, resp.Code, tc.name)
	}
	assert.Equal(t, 1, h.escrow.shipped)
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, enums.ActorRoleBuyer)
	body := `{"items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"delivery_type":"pickup","payment_method":"bank_transfer"}`

	resp := h.do(t, http.MethodPost, "/api/v1/orders", token, body, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	headers := map[string]string{"Idempotency-Key": "order-1"}
	first := h.do(t, http.MethodPost, "/api/v1/orders", token, body, headers)
	require.Equal(t, http.StatusCreated, first.Code)
	second := h.do(t, http.MethodPost, "/api/v1/orders", token, body, headers)
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, h.checkout.placed)
}
