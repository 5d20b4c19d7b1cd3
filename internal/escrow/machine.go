// Package escrow drives orders and their settlement units through the escrow
// lifecycle. The functions in this file are pure: they validate a requested
// change against the loaded aggregate, mutate it in memory and describe what
// the caller must persist. Checks run in a fixed order: source state, then
// caller, then required artifacts.
package escrow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

// Transition describes an accepted change. Version fields on every changed row
// have already been bumped; the expected stored version is Version-1.
type Transition struct {
	Kind         enums.TransitionKind
	Order        *models.Order
	Unit         *models.SettlementUnit
	OrderChanged bool
	Units        []*models.SettlementUnit
	Credit       bool
	Restock      bool
	NoOp         bool
}

// DisputeInput is what a buyer supplies when contesting a shipped unit.
type DisputeInput struct {
	Reason      enums.DisputeReason `json:"reason"`
	Description string              `json:"description"`
}

// ReviewInput is a one-shot rating on a released unit.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// IsExpired reports whether a submitted order has passed its payment window.
func IsExpired(order *models.Order, now time.Time) bool {
	return order != nil &&
		order.Status == enums.OrderStatusSubmitted &&
		now.After(order.SubmissionDeadline)
}

// SubmitPaymentProof attaches or replaces the buyer's payment proof reference.
func SubmitPaymentProof(order *models.Order, caller actor.Actor, proofRef string) (*Transition, error) {
	if order.Status != enums.OrderStatusSubmitted {
		return nil, invalidOrderTransition(order.Status, "payment_proof_submitted")
	}
	if err := requireBuyer(caller, order); err != nil {
		return nil, err
	}
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, missingArtifact("payment_proof_ref")
	}

	order.PaymentProofRef = &proofRef
	order.Version++
	return &Transition{Kind: enums.TransitionKindPaymentProofSubmitted, Order: order, OrderChanged: true}, nil
}

// Verify accepts the payment and moves every unit to verified together.
func Verify(order *models.Order, caller actor.Actor, now time.Time) (*Transition, error) {
	if order.Status != enums.OrderStatusSubmitted {
		return nil, invalidOrderTransition(order.Status, enums.OrderStatusVerified.String())
	}
	admin, err := requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	if order.PaymentProofRef == nil || strings.TrimSpace(*order.PaymentProofRef) == "" {
		return nil, missingArtifact("payment_proof_ref")
	}
	for i := range order.Units {
		if order.Units[i].Status != enums.UnitStatusSubmitted {
			return nil, invalidUnitTransition(&order.Units[i], enums.UnitStatusVerified)
		}
	}

	order.Status = enums.OrderStatusVerified
	order.VerifiedAt = &now
	order.VerifiedBy = &admin.UserID
	order.Version++

	t := &Transition{Kind: enums.TransitionKindOrderVerified, Order: order, OrderChanged: true}
	for i := range order.Units {
		unit := &order.Units[i]
		unit.Status = enums.UnitStatusVerified
		unit.Version++
		t.Units = append(t.Units, unit)
	}
	return t, nil
}

// Reject declines the payment. Units are left untouched; refunds happen
// outside the marketplace.
func Reject(order *models.Order, caller actor.Actor, note string, now time.Time) (*Transition, error) {
	if order.Status != enums.OrderStatusSubmitted {
		return nil, invalidOrderTransition(order.Status, enums.OrderStatusRejected.String())
	}
	if _, err := requireAdmin(caller); err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusRejected
	order.RejectedAt = &now
	if note = strings.TrimSpace(note); note != "" {
		order.RejectionNote = &note
	}
	order.Version++
	return &Transition{Kind: enums.TransitionKindOrderRejected, Order: order, OrderChanged: true, Restock: true}, nil
}

// Expire closes a submitted order whose window has passed. Expiring an
// already expired order is a no-op.
func Expire(order *models.Order, caller actor.Actor, now time.Time) (*Transition, error) {
	if err := requireSystem(caller); err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusExpired {
		return &Transition{Kind: enums.TransitionKindOrderExpired, Order: order, NoOp: true}, nil
	}
	if order.Status != enums.OrderStatusSubmitted {
		return nil, invalidOrderTransition(order.Status, enums.OrderStatusExpired.String())
	}
	if !IsExpired(order, now) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "submission deadline has not passed").
			WithDetails(map[string]string{"submission_deadline": order.SubmissionDeadline.UTC().Format(time.RFC3339)})
	}

	order.Status = enums.OrderStatusExpired
	order.ExpiredAt = &now
	order.Version++
	return &Transition{Kind: enums.TransitionKindOrderExpired, Order: order, OrderChanged: true, Restock: true}, nil
}

// StartProcessing is the merchant acknowledging a verified unit.
func StartProcessing(order *models.Order, merchantID uuid.UUID, caller actor.Actor, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	if unit.Status != enums.UnitStatusVerified {
		return nil, invalidUnitTransition(unit, enums.UnitStatusProcessing)
	}
	if err := requireMerchant(caller, unit); err != nil {
		return nil, err
	}

	unit.Status = enums.UnitStatusProcessing
	unit.ProcessingAt = &now
	return unitTransition(enums.TransitionKindUnitProcessing, order, unit, false), nil
}

// Ship hands a delivery unit to the carrier. Pickup units never ship.
func Ship(order *models.Order, merchantID uuid.UUID, caller actor.Actor, guideRef string, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	if unit.Status != enums.UnitStatusProcessing || order.DeliveryType != enums.DeliveryTypeDelivery {
		return nil, invalidUnitTransition(unit, enums.UnitStatusShipped).
			WithDetails(map[string]string{"from": unit.Status.String(), "to": enums.UnitStatusShipped.String(), "delivery_type": order.DeliveryType.String()})
	}
	if err := requireMerchant(caller, unit); err != nil {
		return nil, err
	}
	guideRef = strings.TrimSpace(guideRef)
	if guideRef == "" {
		return nil, missingArtifact("shipping_guide_ref")
	}

	unit.Status = enums.UnitStatusShipped
	unit.ShippingGuideRef = &guideRef
	unit.ShippedAt = &now
	return unitTransition(enums.TransitionKindUnitShipped, order, unit, false), nil
}

// ConfirmReceipt is the buyer releasing escrow: from processing for pickup
// orders, from shipped for delivery orders.
func ConfirmReceipt(order *models.Order, merchantID uuid.UUID, caller actor.Actor, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	from := enums.UnitStatusShipped
	if order.DeliveryType == enums.DeliveryTypePickup {
		from = enums.UnitStatusProcessing
	}
	if unit.Status != from {
		return nil, invalidUnitTransition(unit, enums.UnitStatusReleased)
	}
	if err := requireBuyer(caller, order); err != nil {
		return nil, err
	}

	release(unit, now)
	return unitTransition(enums.TransitionKindUnitReleased, order, unit, true), nil
}

// OpenDispute contests a shipped unit.
func OpenDispute(order *models.Order, merchantID uuid.UUID, caller actor.Actor, input DisputeInput, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	if unit.Status != enums.UnitStatusShipped {
		return nil, invalidUnitTransition(unit, enums.UnitStatusDisputed)
	}
	if err := requireBuyer(caller, order); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if input.Reason == "" {
		return nil, missingArtifact("dispute_reason")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown dispute reason").
			WithDetails(map[string]string{"reason": input.Reason.String()})
	}
	if description == "" {
		return nil, missingArtifact("dispute_description")
	}

	reason := input.Reason
	unit.Status = enums.UnitStatusDisputed
	unit.DisputeReason = &reason
	unit.DisputeDescription = &description
	unit.DisputeOpenedAt = &now
	return unitTransition(enums.TransitionKindUnitDisputed, order, unit, false), nil
}

// SubmitReview lets the buyer rate a released unit once.
func SubmitReview(order *models.Order, merchantID uuid.UUID, caller actor.Actor, input ReviewInput, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	if unit.Status != enums.UnitStatusReleased || unit.Review != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "unit cannot be reviewed").
			WithDetails(map[string]any{"status": unit.Status.String(), "reviewed": unit.Review != nil})
	}
	if err := requireBuyer(caller, order); err != nil {
		return nil, err
	}
	review, err := newReview(input, caller.ID(), now)
	if err != nil {
		return nil, err
	}

	unit.Review = review
	return unitTransition(enums.TransitionKindReviewSubmitted, order, unit, false), nil
}

// SubmitBuyerReview lets the merchant rate the buyer on a released unit once.
func SubmitBuyerReview(order *models.Order, merchantID uuid.UUID, caller actor.Actor, input ReviewInput, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	if unit.Status != enums.UnitStatusReleased || unit.BuyerReview != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "buyer cannot be reviewed").
			WithDetails(map[string]any{"status": unit.Status.String(), "reviewed": unit.BuyerReview != nil})
	}
	if err := requireMerchant(caller, unit); err != nil {
		return nil, err
	}
	review, err := newReview(input, caller.ID(), now)
	if err != nil {
		return nil, err
	}

	unit.BuyerReview = review
	return unitTransition(enums.TransitionKindBuyerReviewSubmitted, order, unit, false), nil
}

func newReview(input ReviewInput, author uuid.UUID, now time.Time) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	return &models.Review{
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		AuthorID:  author,
		CreatedAt: now,
	}, nil
}

// release is the single path that marks a unit paid out to its merchant.
func release(unit *models.SettlementUnit, now time.Time) {
	credited := enums.UnitPayoutStatusCredited
	unit.Status = enums.UnitStatusReleased
	unit.ReleasedAt = &now
	unit.PayoutStatus = &credited
}

func unitTransition(kind enums.TransitionKind, order *models.Order, unit *models.SettlementUnit, credit bool) *Transition {
	unit.Version++
	return &Transition{
		Kind:   kind,
		Order:  order,
		Unit:   unit,
		Units:  []*models.SettlementUnit{unit},
		Credit: credit,
	}
}

// verifiedUnit finds the merchant's unit and requires the order to have
// cleared payment verification.
func verifiedUnit(order *models.Order, merchantID uuid.UUID) (*models.SettlementUnit, error) {
	unit, ok := order.Unit(merchantID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement unit not found")
	}
	if order.Status != enums.OrderStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order payment is not verified").
			WithDetails(map[string]string{"order_status": order.Status.String()})
	}
	return unit, nil
}

func requireAdmin(caller actor.Actor) (actor.Admin, error) {
	switch v := caller.(type) {
	case actor.Admin:
		return v, nil
	case nil:
		return actor.Admin{}, unauthenticated()
	default:
		return actor.Admin{}, forbidden(caller, enums.ActorRoleAdmin)
	}
}

func requireSystem(caller actor.Actor) error {
	switch caller.(type) {
	case actor.System:
		return nil
	case nil:
		return unauthenticated()
	default:
		return forbidden(caller, enums.ActorRoleSystem)
	}
}

func requireBuyer(caller actor.Actor, order *models.Order) error {
	switch v := caller.(type) {
	case actor.Buyer:
		if v.UserID != order.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own this order")
		}
		return nil
	case nil:
		return unauthenticated()
	default:
		return forbidden(caller, enums.ActorRoleBuyer)
	}
}

func requireMerchant(caller actor.Actor, unit *models.SettlementUnit) error {
	switch v := caller.(type) {
	case actor.Merchant:
		if v.MerchantID != unit.MerchantID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own this settlement unit")
		}
		return nil
	case nil:
		return unauthenticated()
	default:
		return forbidden(caller, enums.ActorRoleMerchant)
	}
}

func unauthenticated() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
}

func forbidden(caller actor.Actor, want enums.ActorRole) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s role required, caller is %s", want, caller.Role()))
}

func missingArtifact(field string) error {
	return pkgerrors.New(pkgerrors.CodeMissingArtifact, field+" is required").
		WithDetails(map[string]string{"field": field})
}

func invalidOrderTransition(from enums.OrderStatus, to string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("order cannot move from %s to %s", from, to)).
		WithDetails(map[string]string{"from": from.String(), "to": to})
}

func invalidUnitTransition(unit *models.SettlementUnit, to enums.UnitStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("settlement unit cannot move from %s to %s", unit.Status, to)).
		WithDetails(map[string]string{"from": unit.Status.String(), "to": to.String()})
}
