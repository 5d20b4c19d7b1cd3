package escrow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

// ResolutionInput is the admin verdict on a disputed unit.
type ResolutionInput struct {
	Verdict enums.DisputeVerdict `json:"verdict"`
	Note    string               `json:"note"`
}

// ResolveDispute settles a disputed unit. A merchant verdict releases the
// unit and credits the wallet; a buyer verdict rejects it and withholds the
// payout. A resolved unit can never be resolved again.
func ResolveDispute(order *models.Order, merchantID uuid.UUID, caller actor.Actor, input ResolutionInput, now time.Time) (*Transition, error) {
	unit, err := verifiedUnit(order, merchantID)
	if err != nil {
		return nil, err
	}
	if unit.DisputeResolution != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "dispute already resolved").
			WithDetails(map[string]string{"resolution": string(*unit.DisputeResolution)})
	}
	if unit.Status != enums.UnitStatusDisputed {
		return nil, invalidUnitTransition(unit, resolvedStatus(input.Verdict))
	}
	admin, err := requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	if !input.Verdict.IsValid() {
		return nil, unknownVerdict(input.Verdict)
	}
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return nil, missingArtifact("resolution_note")
	}

	resolution := input.Verdict.Resolution()
	unit.DisputeResolution = &resolution
	unit.DisputeNote = &note
	unit.DisputeResolvedAt = &now
	unit.DisputeResolvedBy = &admin.UserID

	if input.Verdict == enums.DisputeVerdictFavorMerchant {
		release(unit, now)
		return unitTransition(resolutionKind(input.Verdict), order, unit, true), nil
	}

	withheld := enums.UnitPayoutStatusWithheld
	unit.Status = enums.UnitStatusRejected
	unit.PayoutStatus = &withheld
	return unitTransition(resolutionKind(input.Verdict), order, unit, false), nil
}

// resolutionKind names the transition a verdict produces.
func resolutionKind(verdict enums.DisputeVerdict) enums.TransitionKind {
	if verdict == enums.DisputeVerdictFavorMerchant {
		return enums.TransitionKindDisputeResolvedMerchant
	}
	return enums.TransitionKindDisputeResolvedBuyer
}

func unknownVerdict(verdict enums.DisputeVerdict) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown dispute verdict").
		WithDetails(map[string]string{"verdict": verdict.String()})
}

func resolvedStatus(verdict enums.DisputeVerdict) enums.UnitStatus {
	if verdict == enums.DisputeVerdictFavorMerchant {
		return enums.UnitStatusReleased
	}
	return enums.UnitStatusRejected
}
