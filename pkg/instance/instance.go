package instance

import (
	"os"
	"strings"

	"github.com/MalayathiGeetha/Motor-Part/pkg/env"
)

// EnvInstanceID overrides the identifier a process stamps on shared locks.
const EnvInstanceID = "MOTORSHOP_INSTANCE_ID"

const fallbackID = "motorshop-0"

// ID names the running process: the configured instance id, then the
// hostname, then a fixed fallback.
func ID() string {
	if id := strings.TrimSpace(env.Get(EnvInstanceID, "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
