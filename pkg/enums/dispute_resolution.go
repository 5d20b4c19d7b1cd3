package enums

// DisputeResolution records which party a dispute was settled for.
type DisputeResolution string

const (
	DisputeResolutionMerchant DisputeResolution = "merchant"
	DisputeResolutionBuyer    DisputeResolution = "buyer"
)

// Resolution maps a verdict to the stored resolution value.
func (v DisputeVerdict) Resolution() DisputeResolution {
	if v == DisputeVerdictFavorMerchant {
		return DisputeResolutionMerchant
	}
	return DisputeResolutionBuyer
}
