package enums

import "fmt"

// DisplayStatus is the single status shown for an order on read paths. It is derived, never stored.
type DisplayStatus string

const (
	DisplayStatusSubmitted  DisplayStatus = "submitted"
	DisplayStatusVerified   DisplayStatus = "verified"
	DisplayStatusProcessing DisplayStatus = "processing"
	DisplayStatusShipped    DisplayStatus = "shipped"
	DisplayStatusReleased   DisplayStatus = "released"
	DisplayStatusDisputed   DisplayStatus = "disputed"
	DisplayStatusRejected   DisplayStatus = "rejected"
	DisplayStatusExpired    DisplayStatus = "expired"
)

var validDisplayStatuses = []DisplayStatus{
	DisplayStatusSubmitted,
	DisplayStatusVerified,
	DisplayStatusProcessing,
	DisplayStatusShipped,
	DisplayStatusReleased,
	DisplayStatusDisputed,
	DisplayStatusRejected,
	DisplayStatusExpired,
}

// String implements fmt.Stringer.
func (v DisplayStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DisplayStatus.
func (v DisplayStatus) IsValid() bool {
	for _, candidate := range validDisplayStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDisplayStatus converts raw input into a DisplayStatus.
func ParseDisplayStatus(value string) (DisplayStatus, error) {
	for _, candidate := range validDisplayStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid display status %q", value)
}
