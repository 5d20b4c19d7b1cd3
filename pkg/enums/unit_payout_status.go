package enums

// UnitPayoutStatus marks whether a unit's merchant amount reached the wallet.
type UnitPayoutStatus string

const (
	UnitPayoutStatusCredited UnitPayoutStatus = "credited"
	UnitPayoutStatusWithheld UnitPayoutStatus = "withheld"
)
