package notifications

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// AdminQueueID addresses the shared admin queue rather than one admin.
var AdminQueueID = uuid.Nil

// Recipient identifies who must be told.
type Recipient struct {
	ID   uuid.UUID       `json:"id"`
	Role enums.ActorRole `json:"role"`
}

// Obligation is one message that must reach one recipient.
type Obligation struct {
	Recipient   Recipient                  `json:"recipient"`
	Template    enums.NotificationTemplate `json:"template"`
	ReferenceID uuid.UUID                  `json:"reference_id"`
}

func buyerOf(order *models.Order) Recipient {
	return Recipient{ID: order.BuyerID, Role: enums.ActorRoleBuyer}
}

func merchantOf(unit *models.SettlementUnit) Recipient {
	return Recipient{ID: unit.MerchantID, Role: enums.ActorRoleMerchant}
}

func adminQueue() Recipient {
	return Recipient{ID: AdminQueueID, Role: enums.ActorRoleAdmin}
}

// Obligations maps an accepted order or unit transition to the messages it
// owes. Order-level kinds reference the order, unit-level kinds the unit.
// Unknown kinds and missing inputs yield nothing.
func Obligations(kind enums.TransitionKind, order *models.Order, unit *models.SettlementUnit) []Obligation {
	if order == nil {
		return nil
	}
	template := enums.NotificationTemplate(kind)

	var recipients []Recipient
	ref := order.ID
	switch kind {
	case enums.TransitionKindOrderPlaced:
		recipients = []Recipient{buyerOf(order), adminQueue()}
	case enums.TransitionKindPaymentProofSubmitted:
		recipients = []Recipient{adminQueue()}
	case enums.TransitionKindOrderVerified:
		recipients = []Recipient{buyerOf(order)}
		for i := range order.Units {
			recipients = append(recipients, merchantOf(&order.Units[i]))
		}
	case enums.TransitionKindOrderRejected, enums.TransitionKindOrderExpired:
		recipients = []Recipient{buyerOf(order)}
	default:
		if unit == nil {
			return nil
		}
		ref = unit.ID
		switch kind {
		case enums.TransitionKindUnitProcessing, enums.TransitionKindUnitShipped:
			recipients = []Recipient{buyerOf(order)}
		case enums.TransitionKindUnitReleased:
			recipients = []Recipient{merchantOf(unit), buyerOf(order)}
		case enums.TransitionKindUnitDisputed:
			recipients = []Recipient{buyerOf(order), merchantOf(unit), adminQueue()}
		case enums.TransitionKindDisputeResolvedMerchant, enums.TransitionKindDisputeResolvedBuyer:
			recipients = []Recipient{buyerOf(order), merchantOf(unit)}
		case enums.TransitionKindReviewSubmitted:
			recipients = []Recipient{merchantOf(unit)}
		case enums.TransitionKindBuyerReviewSubmitted:
			recipients = []Recipient{buyerOf(order)}
		default:
			return nil
		}
	}
	return build(recipients, template, ref)
}

// PayoutObligations maps a payout lifecycle change to its messages.
func PayoutObligations(kind enums.TransitionKind, payout *models.PayoutRequest) []Obligation {
	if payout == nil {
		return nil
	}
	merchant := Recipient{ID: payout.MerchantID, Role: enums.ActorRoleMerchant}

	var recipients []Recipient
	switch kind {
	case enums.TransitionKindPayoutRequested:
		recipients = []Recipient{adminQueue()}
	case enums.TransitionKindPayoutCompleted, enums.TransitionKindPayoutRejected:
		recipients = []Recipient{merchant}
	default:
		return nil
	}
	return build(recipients, enums.NotificationTemplate(kind), payout.ID)
}

func build(recipients []Recipient, template enums.NotificationTemplate, ref uuid.UUID) []Obligation {
	out := make([]Obligation, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, Obligation{Recipient: r, Template: template, ReferenceID: ref})
	}
	return out
}
