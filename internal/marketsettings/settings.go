// Package marketsettings supplies the marketplace knobs that are read once per
// operation and snapshotted: platform fee, minimum payout and the payment
// submission window. Env config provides defaults; admins may override them at
// runtime through Redis.
package marketsettings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/config"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/money"
	"github.com/angelmondragon/escrowmarket/pkg/redis"
)

const settingsName = "marketplace"

var hundred = decimal.NewFromInt(100)

// Snapshot is the settings view captured at the start of an operation.
type Snapshot struct {
	PlatformFeePct   decimal.Decimal `json:"platform_fee_pct"`
	MinPayout        decimal.Decimal `json:"min_payout"`
	SubmissionWindow time.Duration   `json:"-"`
	Currency         string          `json:"currency"`
}

// MarshalJSON renders the window as a Go duration string.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	return json.Marshal(struct {
		alias
		SubmissionWindow string `json:"submission_window"`
	}{alias: alias(s), SubmissionWindow: s.SubmissionWindow.String()})
}

// Source is read by checkout and the wallet.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// UpdateInput carries the fields an admin wants to override. Nil fields are
// left unchanged.
type UpdateInput struct {
	PlatformFeePct   *decimal.Decimal `json:"platform_fee_pct"`
	MinPayout        *decimal.Decimal `json:"min_payout"`
	SubmissionWindow *string          `json:"submission_window"`
}

type overrides struct {
	PlatformFeePct   *decimal.Decimal `json:"platform_fee_pct,omitempty"`
	MinPayout        *decimal.Decimal `json:"min_payout,omitempty"`
	SubmissionWindow *time.Duration   `json:"submission_window,omitempty"`
}

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SettingsKey(name string) string
}

// Service reads and updates marketplace settings.
type Service struct {
	defaults Snapshot
	store    store
}

// NewService builds a settings service. A nil store serves env defaults only.
func NewService(cfg config.MarketplaceConfig, rc *redis.Client) *Service {
	svc := &Service{defaults: Snapshot{
		PlatformFeePct:   cfg.PlatformFeePct,
		MinPayout:        cfg.MinPayout,
		SubmissionWindow: cfg.SubmissionWindow,
		Currency:         cfg.Currency,
	}}
	if rc != nil {
		svc.store = rc
	}
	return svc
}

// Static returns a Source that always yields snap.
func Static(snap Snapshot) Source {
	return staticSource(snap)
}

type staticSource Snapshot

func (s staticSource) Snapshot(context.Context) (Snapshot, error) {
	return Snapshot(s), nil
}

func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := s.defaults
	if s.store == nil {
		return snap, nil
	}
	ov, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load marketplace settings")
	}
	return ov.apply(snap), nil
}

// Update validates and stores admin overrides, returning the new snapshot.
func (s *Service) Update(ctx context.Context, caller actor.Actor, input UpdateInput) (Snapshot, error) {
	if _, ok := caller.(actor.Admin); !ok {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if s.store == nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeDependency, "settings store not configured")
	}

	current, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load marketplace settings")
	}
	next, err := current.merge(input)
	if err != nil {
		return Snapshot{}, err
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode marketplace settings")
	}
	if err := s.store.Set(ctx, s.store.SettingsKey(settingsName), string(payload), 0); err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store marketplace settings")
	}
	return next.apply(s.defaults), nil
}

func (s *Service) load(ctx context.Context) (overrides, error) {
	raw, err := s.store.Get(ctx, s.store.SettingsKey(settingsName))
	if errors.Is(err, redis.ErrNil) {
		return overrides{}, nil
	}
	if err != nil {
		return overrides{}, err
	}
	var ov overrides
	if err := json.Unmarshal([]byte(raw), &ov); err != nil {
		return overrides{}, fmt.Errorf("decode marketplace settings: %w", err)
	}
	return ov, nil
}

func (o overrides) apply(snap Snapshot) Snapshot {
	if o.PlatformFeePct != nil {
		snap.PlatformFeePct = *o.PlatformFeePct
	}
	if o.MinPayout != nil {
		snap.MinPayout = *o.MinPayout
	}
	if o.SubmissionWindow != nil {
		snap.SubmissionWindow = *o.SubmissionWindow
	}
	return snap
}

func (o overrides) merge(input UpdateInput) (overrides, error) {
	issues := map[string]string{}
	if input.PlatformFeePct != nil {
		fee := *input.PlatformFeePct
		if fee.IsNegative() || fee.GreaterThan(hundred) || !fee.Equal(money.Round2(fee)) {
			issues["platform_fee_pct"] = "must be between 0 and 100 with at most two decimals"
		} else {
			o.PlatformFeePct = &fee
		}
	}
	if input.MinPayout != nil {
		minPayout := *input.MinPayout
		if minPayout.IsNegative() || !minPayout.Equal(money.Round2(minPayout)) {
			issues["min_payout"] = "must be a non-negative amount"
		} else {
			o.MinPayout = &minPayout
		}
	}
	if input.SubmissionWindow != nil {
		window, err := time.ParseDuration(strings.TrimSpace(*input.SubmissionWindow))
		if err != nil || window <= 0 {
			issues["submission_window"] = "must be a positive duration such as 24h"
		} else {
			o.SubmissionWindow = &window
		}
	}
	if len(issues) > 0 {
		return overrides{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid settings").WithDetails(issues)
	}
	return o, nil
}
