package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/internal/ledger"
	"github.com/angelmondragon/escrowmarket/internal/marketsettings"
	"github.com/angelmondragon/escrowmarket/internal/notifications"
	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/money"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every wallet mutation: release credits, payout debits and
// payout refunds. Each mutation writes a ledger event in the same transaction.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (decimal.Decimal, error)
	RequestPayout(ctx context.Context, caller actor.Actor, amount decimal.Decimal) (*PayoutDTO, error)
	CompletePayout(ctx context.Context, caller actor.Actor, payoutID uuid.UUID) (*PayoutDTO, error)
	RejectPayout(ctx context.Context, caller actor.Actor, payoutID uuid.UUID, note string) (*PayoutDTO, error)
	GetWallet(ctx context.Context, caller actor.Actor) (*WalletDTO, error)
	ListPayouts(ctx context.Context, caller actor.Actor, status *enums.PayoutStatus, params pagination.Params) (*PayoutList, error)
}

// CreditInput describes a release credit for one settlement unit.
type CreditInput struct {
	MerchantID uuid.UUID
	OrderID    uuid.UUID
	UnitID     uuid.UUID
	ActorID    uuid.UUID
	Amount     decimal.Decimal
	Reason     string
}

// WalletDTO is the merchant-facing wallet view.
type WalletDTO struct {
	MerchantID    uuid.UUID       `json:"merchant_id"`
	Balance       decimal.Decimal `json:"balance"`
	PendingPayout *PayoutDTO      `json:"pending_payout,omitempty"`
}

// PayoutDTO exposes a payout request.
type PayoutDTO struct {
	ID          uuid.UUID          `json:"id"`
	MerchantID  uuid.UUID          `json:"merchant_id"`
	Amount      decimal.Decimal    `json:"amount"`
	Status      enums.PayoutStatus `json:"status"`
	Note        *string            `json:"note,omitempty"`
	ProcessedBy *uuid.UUID         `json:"processed_by,omitempty"`
	RequestedAt time.Time          `json:"requested_at"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
}

// PayoutList is a page of payout requests.
type PayoutList struct {
	Payouts    []PayoutDTO `json:"payouts"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// ServiceParams groups the wallet service collaborators.
type ServiceParams struct {
	TxRunner   txRunner
	Repo       Repository
	Ledger     ledger.Service
	Settings   marketsettings.Source
	Dispatcher notifications.Dispatcher
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	tx         txRunner
	repo       Repository
	ledger     ledger.Service
	settings   marketsettings.Source
	dispatcher notifications.Dispatcher
	logg       *logger.Logger
	now        func() time.Time
}

// NewService validates collaborators and builds the wallet service.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings source required")
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
		repo:       params.Repo,
		ledger:     params.Ledger,
		settings:   params.Settings,
		dispatcher: params.Dispatcher,
		logg:       params.Logger,
		now:        params.Clock,
	}, nil
}

// Credit adds a release amount to the merchant wallet inside tx and journals
// it. The ledger's unique release index turns a second credit for the same
// unit into STALE_STATE, which rolls the caller's transaction back.
func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, fmt.Errorf("credit requires a transaction")
	}
	amount := money.Round2(input.Amount)
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	balance, err := s.repo.WithTx(tx).AddBalance(ctx, input.MerchantID, amount)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "merchant wallet not found")
	}
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
	}

	orderID, unitID := input.OrderID, input.UnitID
	metadata, _ := json.Marshal(map[string]string{"reason": input.Reason})
	if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
		MerchantID:   input.MerchantID,
		OrderID:      &orderID,
		UnitID:       &unitID,
		ActorID:      input.ActorID,
		Type:         enums.LedgerEventTypeReleaseCredit,
		Amount:       amount,
		BalanceAfter: balance,
		Metadata:     metadata,
	}); err != nil {
		return decimal.Zero, wrapDependency(err, "record release credit")
	}
	return balance, nil
}

func (s *service) RequestPayout(ctx context.Context, caller actor.Actor, amount decimal.Decimal) (*PayoutDTO, error) {
	merchant, ok := caller.(actor.Merchant)
	if !ok {
		return nil, roleError(caller, "merchant role required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !amount.Equal(money.Round2(amount)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount has more than two decimal places")
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(snap.MinPayout) {
		return nil, pkgerrors.New(pkgerrors.CodeBelowMinimum, "amount below minimum payout").
			WithDetails(map[string]string{"min_payout": snap.MinPayout.StringFixed(2)})
	}

	ctx = s.logg.WithMerchantID(ctx, merchant.MerchantID.String())
	var payout *models.PayoutRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.LockProfile(ctx, merchant.MerchantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "merchant wallet not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}

		pending, err := repo.HasPendingPayout(ctx, merchant.MerchantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payouts")
		}
		if pending {
			return pkgerrors.New(pkgerrors.CodeDuplicatePayout, "a payout request is already pending")
		}
		if amount.GreaterThan(profile.WalletBalance) {
			return insufficientFunds(profile.WalletBalance)
		}

		balance, err := repo.DebitBalance(ctx, merchant.MerchantID, amount)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds) {
				return insufficientFunds(profile.WalletBalance)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
		}

		payout = &models.PayoutRequest{
			ID:          uuid.New(),
			MerchantID:  merchant.MerchantID,
			Amount:      amount,
			Status:      enums.PayoutStatusPending,
			RequestedAt: s.now().UTC(),
		}
		if err := repo.CreatePayout(ctx, payout); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicatePayout, "a payout request is already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout request")
		}

		_, err = s.ledger.Record(ctx, tx, ledger.RecordInput{
			MerchantID:      merchant.MerchantID,
			PayoutRequestID: &payout.ID,
			ActorID:         merchant.MerchantID,
			Type:            enums.LedgerEventTypePayoutDebit,
			Amount:          amount,
			BalanceAfter:    balance,
		})
		return wrapDependency(err, "record payout debit")
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payout requested")
	s.dispatcher.Dispatch(ctx, notifications.PayoutObligations(enums.TransitionKindPayoutRequested, payout))
	dto := newPayoutDTO(payout)
	return &dto, nil
}

func (s *service) CompletePayout(ctx context.Context, caller actor.Actor, payoutID uuid.UUID) (*PayoutDTO, error) {
	admin, ok := caller.(actor.Admin)
	if !ok {
		return nil, roleError(caller, "admin role required")
	}

	var payout *models.PayoutRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payout, err = s.loadPending(ctx, repo, payoutID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		payout.Status = enums.PayoutStatusPaid
		payout.ProcessedAt = &now
		payout.ProcessedBy = &admin.UserID
		return s.close(ctx, repo, payout)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithMerchantID(ctx, payout.MerchantID.String()), "payout completed")
	s.dispatcher.Dispatch(ctx, notifications.PayoutObligations(enums.TransitionKindPayoutCompleted, payout))
	dto := newPayoutDTO(payout)
	return &dto, nil
}

// RejectPayout closes a pending request and returns the reserved amount to
// the wallet.
func (s *service) RejectPayout(ctx context.Context, caller actor.Actor, payoutID uuid.UUID, note string) (*PayoutDTO, error) {
	admin, ok := caller.(actor.Admin)
	if !ok {
		return nil, roleError(caller, "admin role required")
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection note required")
	}

	var payout *models.PayoutRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		payout, err = s.loadPending(ctx, repo, payoutID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		payout.Status = enums.PayoutStatusRejected
		payout.Note = &note
		payout.ProcessedAt = &now
		payout.ProcessedBy = &admin.UserID
		if err := s.close(ctx, repo, payout); err != nil {
			return err
		}

		balance, err := repo.AddBalance(ctx, payout.MerchantID, payout.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund wallet")
		}
		_, err = s.ledger.Record(ctx, tx, ledger.RecordInput{
			MerchantID:      payout.MerchantID,
			PayoutRequestID: &payout.ID,
			ActorID:         admin.UserID,
			Type:            enums.LedgerEventTypePayoutRefund,
			Amount:          payout.Amount,
			BalanceAfter:    balance,
		})
		return wrapDependency(err, "record payout refund")
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithMerchantID(ctx, payout.MerchantID.String()), "payout rejected")
	s.dispatcher.Dispatch(ctx, notifications.PayoutObligations(enums.TransitionKindPayoutRejected, payout))
	dto := newPayoutDTO(payout)
	return &dto, nil
}

func (s *service) loadPending(ctx context.Context, repo Repository, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	payout, err := repo.FindPayout(ctx, payoutID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout request not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout request")
	}
	if payout.Status != enums.PayoutStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payout request is not pending").
			WithDetails(map[string]string{"status": payout.Status.String()})
	}
	return payout, nil
}

func (s *service) close(ctx context.Context, repo Repository, payout *models.PayoutRequest) error {
	if err := repo.ClosePayout(ctx, payout); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout request")
	}
	return nil
}

func (s *service) GetWallet(ctx context.Context, caller actor.Actor) (*WalletDTO, error) {
	merchant, ok := caller.(actor.Merchant)
	if !ok {
		return nil, roleError(caller, "merchant role required")
	}
	profile, err := s.repo.FindProfile(ctx, merchant.MerchantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "merchant wallet not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	dto := &WalletDTO{MerchantID: profile.ID, Balance: profile.WalletBalance}
	pending := enums.PayoutStatusPending
	rows, _, err := s.repo.ListPayouts(ctx, PayoutFilter{MerchantID: &merchant.MerchantID, Status: &pending}, pagination.Params{Limit: 1})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payout")
	}
	if len(rows) > 0 {
		p := newPayoutDTO(&rows[0])
		dto.PendingPayout = &p
	}
	return dto, nil
}

func (s *service) ListPayouts(ctx context.Context, caller actor.Actor, status *enums.PayoutStatus, params pagination.Params) (*PayoutList, error) {
	filter := PayoutFilter{Status: status}
	switch v := caller.(type) {
	case actor.Merchant:
		filter.MerchantID = &v.MerchantID
	case actor.Admin:
	default:
		return nil, roleError(caller, "merchant or admin role required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout status")
	}

	rows, next, err := s.repo.ListPayouts(ctx, filter, params)
	if err != nil {
		return nil, wrapDependency(err, "list payouts")
	}
	list := &PayoutList{Payouts: make([]PayoutDTO, 0, len(rows))}
	for i := range rows {
		list.Payouts = append(list.Payouts, newPayoutDTO(&rows[i]))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func newPayoutDTO(p *models.PayoutRequest) PayoutDTO {
	return PayoutDTO{
		ID:          p.ID,
		MerchantID:  p.MerchantID,
		Amount:      p.Amount,
		Status:      p.Status,
		Note:        p.Note,
		ProcessedBy: p.ProcessedBy,
		RequestedAt: p.RequestedAt,
		ProcessedAt: p.ProcessedAt,
	}
}

func insufficientFunds(balance decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "amount exceeds wallet balance").
		WithDetails(map[string]string{"balance": balance.StringFixed(2)})
}

func roleError(caller actor.Actor, msg string) error {
	if caller == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}

func wrapDependency(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
