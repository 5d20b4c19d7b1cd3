package instance

import (
	"os"

	"github.com/angelmondragon/escrowmarket/pkg/env"
)

// ID names this replica in leases and logs. ESCROW_INSTANCE_ID wins, then the
// hostname.
func ID() string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "replica-0"
}
