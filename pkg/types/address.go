package types

import (
	"fmt"
	"strings"
)

// Address is the buyer delivery address snapshot stored with an order.
type Address struct {
	RecipientName string  `json:"recipient_name"`
	Phone         string  `json:"phone"`
	Line1         string  `json:"line1"`
	Line2         *string `json:"line2,omitempty"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	PostalCode    string  `json:"postal_code"`
	Country       string  `json:"country"`
	Notes         *string `json:"notes,omitempty"`
}

// Validate enforces the fields a merchant needs to ship.
func (a Address) Validate() error {
	missing := []string{}
	if strings.TrimSpace(a.RecipientName) == "" {
		missing = append(missing, "recipient_name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Errorf("address missing %s", strings.Join(missing, ", "))
	}
	return nil
}
