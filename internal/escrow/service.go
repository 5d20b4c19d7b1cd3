package escrow

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/notifications"
	"github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/internal/wallet"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies escrow transitions. Each call loads the order, runs the
// pure transition, persists it with compare-and-set, credits the wallet when
// escrow is released and dispatches notifications after commit.
type Service interface {
	SubmitPaymentProof(ctx context.Context, caller actor.Actor, orderID uuid.UUID, proofRef string) (*orders.OrderDTO, error)
	Verify(ctx context.Context, caller actor.Actor, orderID uuid.UUID) (*orders.OrderDTO, error)
	Reject(ctx context.Context, caller actor.Actor, orderID uuid.UUID, note string) (*orders.OrderDTO, error)
	Expire(ctx context.Context, caller actor.Actor, orderID uuid.UUID) (*orders.OrderDTO, error)
	StartProcessing(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID) (*orders.OrderDTO, error)
	Ship(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, guideRef string) (*orders.OrderDTO, error)
	ConfirmReceipt(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID) (*orders.OrderDTO, error)
	OpenDispute(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input DisputeInput) (*orders.OrderDTO, error)
	ResolveDispute(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input ResolutionInput) (*orders.OrderDTO, error)
	SubmitReview(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input ReviewInput) (*orders.OrderDTO, error)
	SubmitBuyerReview(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input ReviewInput) (*orders.OrderDTO, error)
	ExpireOverdue(ctx context.Context, limit int) (ExpiryReport, error)
}

// ExpiryReport summarizes one expiry sweep.
type ExpiryReport struct {
	Scanned int
	Expired int
	Skipped int
}

// ServiceParams groups the escrow service collaborators.
type ServiceParams struct {
	TxRunner   txRunner
	Orders     orders.Repository
	Catalog    checkout.CatalogRepository
	Wallet     wallet.Service
	Dispatcher notifications.Dispatcher
	Metrics    *metrics.EscrowMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	tx         txRunner
	orders     orders.Repository
	catalog    checkout.CatalogRepository
	wallet     wallet.Service
	dispatcher notifications.Dispatcher
	metrics    *metrics.EscrowMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService validates collaborators and builds the escrow service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Dispatcher == nil {
		params.Dispatcher = notifications.Discard{}
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		tx:         params.TxRunner,
		orders:     params.Orders,
		catalog:    params.Catalog,
		wallet:     params.Wallet,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        params.Clock,
	}, nil
}

type mutation func(order *models.Order, now time.Time) (*Transition, error)

func (s *service) SubmitPaymentProof(ctx context.Context, caller actor.Actor, orderID uuid.UUID, proofRef string) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindPaymentProofSubmitted, func(order *models.Order, _ time.Time) (*Transition, error) {
		return SubmitPaymentProof(order, caller, proofRef)
	})
}

func (s *service) Verify(ctx context.Context, caller actor.Actor, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindOrderVerified, func(order *models.Order, now time.Time) (*Transition, error) {
		return Verify(order, caller, now)
	})
}

func (s *service) Reject(ctx context.Context, caller actor.Actor, orderID uuid.UUID, note string) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindOrderRejected, func(order *models.Order, now time.Time) (*Transition, error) {
		return Reject(order, caller, note, now)
	})
}

func (s *service) Expire(ctx context.Context, caller actor.Actor, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindOrderExpired, func(order *models.Order, now time.Time) (*Transition, error) {
		return Expire(order, caller, now)
	})
}

func (s *service) StartProcessing(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindUnitProcessing, func(order *models.Order, now time.Time) (*Transition, error) {
		return StartProcessing(order, merchantID, caller, now)
	})
}

func (s *service) Ship(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, guideRef string) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindUnitShipped, func(order *models.Order, now time.Time) (*Transition, error) {
		return Ship(order, merchantID, caller, guideRef, now)
	})
}

func (s *service) ConfirmReceipt(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindUnitReleased, func(order *models.Order, now time.Time) (*Transition, error) {
		return ConfirmReceipt(order, merchantID, caller, now)
	})
}

func (s *service) OpenDispute(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input DisputeInput) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindUnitDisputed, func(order *models.Order, now time.Time) (*Transition, error) {
		return OpenDispute(order, merchantID, caller, input, now)
	})
}

func (s *service) ResolveDispute(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input ResolutionInput) (*orders.OrderDTO, error) {
	if !input.Verdict.IsValid() {
		return nil, unknownVerdict(input.Verdict)
	}
	return s.apply(ctx, caller, orderID, resolutionKind(input.Verdict), func(order *models.Order, now time.Time) (*Transition, error) {
		return ResolveDispute(order, merchantID, caller, input, now)
	})
}

func (s *service) SubmitReview(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input ReviewInput) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindReviewSubmitted, func(order *models.Order, now time.Time) (*Transition, error) {
		return SubmitReview(order, merchantID, caller, input, now)
	})
}

func (s *service) SubmitBuyerReview(ctx context.Context, caller actor.Actor, orderID, merchantID uuid.UUID, input ReviewInput) (*orders.OrderDTO, error) {
	return s.apply(ctx, caller, orderID, enums.TransitionKindBuyerReviewSubmitted, func(order *models.Order, now time.Time) (*Transition, error) {
		return SubmitBuyerReview(order, merchantID, caller, input, now)
	})
}

// ExpireOverdue expires submitted orders whose payment window has passed.
// Orders that moved on before the sweep reached them are counted as skipped.
func (s *service) ExpireOverdue(ctx context.Context, limit int) (ExpiryReport, error) {
	var report ExpiryReport
	ids, err := s.orders.ListOverdue(ctx, s.now().UTC(), limit)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue orders")
	}
	report.Scanned = len(ids)

	sweeper := actor.System{Name: "order-expiry"}
	var errs error
	for _, id := range ids {
		_, err := s.Expire(ctx, sweeper, id)
		switch {
		case err == nil:
			report.Expired++
		case pkgerrors.IsCode(err, pkgerrors.CodeStaleState),
			pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition),
			pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			report.Skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
		}
	}
	return report, errs
}

func (s *service) apply(ctx context.Context, caller actor.Actor, orderID uuid.UUID, kind enums.TransitionKind, fn mutation) (*orders.OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"transition": kind.String(),
		"actor":      actor.Describe(caller),
	})

	now := s.now().UTC()
	var result *Transition
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return orders.MapLoadError(err)
		}
		result, err = fn(order, now)
		if err != nil || result.NoOp {
			return err
		}
		return s.persist(ctx, tx, repo, caller, result)
	})
	if err != nil {
		s.recordFailure(ctx, kind, err)
		return nil, wrapDependency(err, "apply transition")
	}

	if result.NoOp {
		s.metrics.Observe(kind.String(), metrics.OutcomeNoop)
		s.logg.Debug(ctx, "escrow transition already applied")
		return scopedDTO(caller, result.Order), nil
	}

	s.metrics.Observe(kind.String(), metrics.OutcomeApplied)
	if result.Credit {
		s.metrics.IncCredit()
	}
	s.logg.Info(ctx, "escrow transition applied")
	s.dispatcher.Dispatch(ctx, notifications.Obligations(result.Kind, result.Order, result.Unit))
	return scopedDTO(caller, result.Order), nil
}

func (s *service) persist(ctx context.Context, tx *gorm.DB, repo orders.Repository, caller actor.Actor, t *Transition) error {
	if t.OrderChanged {
		if err := repo.UpdateOrder(ctx, t.Order, t.Order.Version-1); err != nil {
			return err
		}
	}
	for _, unit := range t.Units {
		if err := repo.UpdateUnit(ctx, unit, unit.Version-1); err != nil {
			return err
		}
	}
	if t.Restock {
		if err := s.restock(ctx, tx, t.Order); err != nil {
			return err
		}
	}
	if !t.Credit {
		return nil
	}
	_, err := s.wallet.Credit(ctx, tx, wallet.CreditInput{
		MerchantID: t.Unit.MerchantID,
		OrderID:    t.Order.ID,
		UnitID:     t.Unit.ID,
		ActorID:    caller.ID(),
		Amount:     t.Unit.MerchantAmount,
		Reason:     t.Kind.String(),
	})
	return err
}

// restock returns the stock an unpaid order reserved at placement. Products
// are touched in id order so concurrent restocks lock rows consistently.
func (s *service) restock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	reserved := map[uuid.UUID]int{}
	for _, unit := range order.Units {
		for _, item := range unit.Items {
			reserved[item.ProductID] += item.Quantity
		}
	}
	ids := make([]uuid.UUID, 0, len(reserved))
	for id := range reserved {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	catalog := s.catalog.WithTx(tx)
	for _, id := range ids {
		if err := catalog.IncrementStock(ctx, id, reserved[id]); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release reserved stock")
		}
	}
	return nil
}

func (s *service) recordFailure(ctx context.Context, kind enums.TransitionKind, err error) {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeStaleState):
		s.metrics.Observe(kind.String(), metrics.OutcomeStale)
		s.logg.Warn(ctx, "escrow transition lost a concurrent update")
	case pkgerrors.As(err) != nil && !pkgerrors.IsCode(err, pkgerrors.CodeDependency) && !pkgerrors.IsCode(err, pkgerrors.CodeInternal):
		s.metrics.Observe(kind.String(), metrics.OutcomeRejected)
	default:
		s.metrics.Observe(kind.String(), metrics.OutcomeFailed)
		s.logg.Error(ctx, "escrow transition failed", err)
	}
}

// scopedDTO hides other merchants' units from a merchant caller.
func scopedDTO(caller actor.Actor, order *models.Order) *orders.OrderDTO {
	var only *uuid.UUID
	if m, ok := caller.(actor.Merchant); ok {
		only = &m.MerchantID
	}
	dto := orders.NewOrderDTO(order, only)
	return &dto
}

func wrapDependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
