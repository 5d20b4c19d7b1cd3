package enums

import "fmt"

// DisputeVerdict is the admin decision on a disputed unit.
type DisputeVerdict string

const (
	DisputeVerdictFavorMerchant DisputeVerdict = "favor_merchant"
	DisputeVerdictFavorBuyer    DisputeVerdict = "favor_buyer"
)

var validDisputeVerdicts = []DisputeVerdict{
	DisputeVerdictFavorMerchant,
	DisputeVerdictFavorBuyer,
}

// String implements fmt.Stringer.
func (v DisputeVerdict) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DisputeVerdict.
func (v DisputeVerdict) IsValid() bool {
	for _, candidate := range validDisputeVerdicts {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDisputeVerdict converts raw input into a DisputeVerdict.
func ParseDisputeVerdict(value string) (DisputeVerdict, error) {
	for _, candidate := range validDisputeVerdicts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute verdict %q", value)
}
