package enums

import "fmt"

// NotificationTemplate names the message a recipient must receive.
type NotificationTemplate string

const (
	NotificationTemplateOrderPlaced             NotificationTemplate = "order_placed"
	NotificationTemplatePaymentProofSubmitted   NotificationTemplate = "payment_proof_submitted"
	NotificationTemplateOrderVerified           NotificationTemplate = "order_verified"
	NotificationTemplateOrderRejected           NotificationTemplate = "order_rejected"
	NotificationTemplateOrderExpired            NotificationTemplate = "order_expired"
	NotificationTemplateUnitProcessing          NotificationTemplate = "unit_processing"
	NotificationTemplateUnitShipped             NotificationTemplate = "unit_shipped"
	NotificationTemplateUnitReleased            NotificationTemplate = "unit_released"
	NotificationTemplateUnitDisputed            NotificationTemplate = "unit_disputed"
	NotificationTemplateDisputeResolvedMerchant NotificationTemplate = "dispute_resolved_merchant"
	NotificationTemplateDisputeResolvedBuyer    NotificationTemplate = "dispute_resolved_buyer"
	NotificationTemplateReviewSubmitted         NotificationTemplate = "review_submitted"
	NotificationTemplateBuyerReviewSubmitted    NotificationTemplate = "buyer_review_submitted"
	NotificationTemplatePayoutRequested         NotificationTemplate = "payout_requested"
	NotificationTemplatePayoutCompleted         NotificationTemplate = "payout_completed"
	NotificationTemplatePayoutRejected          NotificationTemplate = "payout_rejected"
)

var validNotificationTemplates = []NotificationTemplate{
	NotificationTemplateOrderPlaced,
	NotificationTemplatePaymentProofSubmitted,
	NotificationTemplateOrderVerified,
	NotificationTemplateOrderRejected,
	NotificationTemplateOrderExpired,
	NotificationTemplateUnitProcessing,
	NotificationTemplateUnitShipped,
	NotificationTemplateUnitReleased,
	NotificationTemplateUnitDisputed,
	NotificationTemplateDisputeResolvedMerchant,
	NotificationTemplateDisputeResolvedBuyer,
	NotificationTemplateReviewSubmitted,
	NotificationTemplateBuyerReviewSubmitted,
	NotificationTemplatePayoutRequested,
	NotificationTemplatePayoutCompleted,
	NotificationTemplatePayoutRejected,
}

// String implements fmt.Stringer.
func (v NotificationTemplate) String() string {
	return string(v)
}

// IsValid reports whether the value is a known NotificationTemplate.
func (v NotificationTemplate) IsValid() bool {
	for _, candidate := range validNotificationTemplates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseNotificationTemplate converts raw input into a NotificationTemplate.
func ParseNotificationTemplate(value string) (NotificationTemplate, error) {
	for _, candidate := range validNotificationTemplates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification template %q", value)
}
