package enums

import "fmt"

// UnitStatus tracks a settlement unit through fulfillment and release.
type UnitStatus string

const (
	UnitStatusSubmitted  UnitStatus = "submitted"
	UnitStatusVerified   UnitStatus = "verified"
	UnitStatusProcessing UnitStatus = "processing"
	UnitStatusShipped    UnitStatus = "shipped"
	UnitStatusReleased   UnitStatus = "released"
	UnitStatusDisputed   UnitStatus = "disputed"
	UnitStatusRejected   UnitStatus = "rejected"
)

var validUnitStatuses = []UnitStatus{
	UnitStatusSubmitted,
	UnitStatusVerified,
	UnitStatusProcessing,
	UnitStatusShipped,
	UnitStatusReleased,
	UnitStatusDisputed,
	UnitStatusRejected,
}

// String implements fmt.Stringer.
func (v UnitStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known UnitStatus.
func (v UnitStatus) IsValid() bool {
	for _, candidate := range validUnitStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUnitStatus converts raw input into a UnitStatus.
func ParseUnitStatus(value string) (UnitStatus, error) {
	for _, candidate := range validUnitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit status %q", value)
}

// IsTerminal reports whether the unit has settled for good.
func (v UnitStatus) IsTerminal() bool {
	return v == UnitStatusReleased || v == UnitStatusRejected
}
