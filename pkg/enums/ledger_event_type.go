package enums

import "fmt"

// LedgerEventType classifies wallet movements recorded in the ledger.
type LedgerEventType string

const (
	LedgerEventTypeReleaseCredit LedgerEventType = "release_credit"
	LedgerEventTypePayoutDebit   LedgerEventType = "payout_debit"
	LedgerEventTypePayoutRefund  LedgerEventType = "payout_refund"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeReleaseCredit,
	LedgerEventTypePayoutDebit,
	LedgerEventTypePayoutRefund,
}

// String implements fmt.Stringer.
func (v LedgerEventType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known LedgerEventType.
func (v LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into a LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
