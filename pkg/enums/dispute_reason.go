package enums

import "fmt"

// DisputeReason enumerates why a buyer contests a shipped unit.
type DisputeReason string

const (
	DisputeReasonNotReceived    DisputeReason = "not_received"
	DisputeReasonDamaged        DisputeReason = "damaged"
	DisputeReasonNotAsDescribed DisputeReason = "not_as_described"
	DisputeReasonWrongItem      DisputeReason = "wrong_item"
	DisputeReasonOther          DisputeReason = "other"
)

var validDisputeReasons = []DisputeReason{
	DisputeReasonNotReceived,
	DisputeReasonDamaged,
	DisputeReasonNotAsDescribed,
	DisputeReasonWrongItem,
	DisputeReasonOther,
}

// String implements fmt.Stringer.
func (v DisputeReason) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DisputeReason.
func (v DisputeReason) IsValid() bool {
	for _, candidate := range validDisputeReasons {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDisputeReason converts raw input into a DisputeReason.
func ParseDisputeReason(value string) (DisputeReason, error) {
	for _, candidate := range validDisputeReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute reason %q", value)
}
