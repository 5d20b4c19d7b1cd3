package enums

import "fmt"

// TransitionKind identifies an accepted state change. Metrics and notification
// obligations are keyed by it.
type TransitionKind string

const (
	TransitionKindOrderPlaced             TransitionKind = "order_placed"
	TransitionKindPaymentProofSubmitted   TransitionKind = "payment_proof_submitted"
	TransitionKindOrderVerified           TransitionKind = "order_verified"
	TransitionKindOrderRejected           TransitionKind = "order_rejected"
	TransitionKindOrderExpired            TransitionKind = "order_expired"
	TransitionKindUnitProcessing          TransitionKind = "unit_processing"
	TransitionKindUnitShipped             TransitionKind = "unit_shipped"
	TransitionKindUnitReleased            TransitionKind = "unit_released"
	TransitionKindUnitDisputed            TransitionKind = "unit_disputed"
	TransitionKindDisputeResolvedMerchant TransitionKind = "dispute_resolved_merchant"
	TransitionKindDisputeResolvedBuyer    TransitionKind = "dispute_resolved_buyer"
	TransitionKindReviewSubmitted         TransitionKind = "review_submitted"
	TransitionKindBuyerReviewSubmitted    TransitionKind = "buyer_review_submitted"
	TransitionKindPayoutRequested         TransitionKind = "payout_requested"
	TransitionKindPayoutCompleted         TransitionKind = "payout_completed"
	TransitionKindPayoutRejected          TransitionKind = "payout_rejected"
)

var validTransitionKinds = []TransitionKind{
	TransitionKindOrderPlaced,
	TransitionKindPaymentProofSubmitted,
	TransitionKindOrderVerified,
	TransitionKindOrderRejected,
	TransitionKindOrderExpired,
	TransitionKindUnitProcessing,
	TransitionKindUnitShipped,
	TransitionKindUnitReleased,
	TransitionKindUnitDisputed,
	TransitionKindDisputeResolvedMerchant,
	TransitionKindDisputeResolvedBuyer,
	TransitionKindReviewSubmitted,
	TransitionKindBuyerReviewSubmitted,
	TransitionKindPayoutRequested,
	TransitionKindPayoutCompleted,
	TransitionKindPayoutRejected,
}

// String implements fmt.Stringer.
func (v TransitionKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TransitionKind.
func (v TransitionKind) IsValid() bool {
	for _, candidate := range validTransitionKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTransitionKind converts raw input into a TransitionKind.
func ParseTransitionKind(value string) (TransitionKind, error) {
	for _, candidate := range validTransitionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transition kind %q", value)
}
