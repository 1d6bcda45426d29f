package axigen

import "time"

// DefaultTimeout is the per-operation network timeout applied when a Target
// does not carry one.
const DefaultTimeout = 8 * time.Second

// Target holds the connection coordinates for one mail server.
type Target struct {
	// Name is the display name of the server (for logs only).
	Name string
	// Host is the hostname or IP of the server.
	Host string
	// CLIPort is the administrative CLI port (Axigen default 7000).
	CLIPort int
	// WebadminPort is the WebAdmin port serving the usage report.
	WebadminPort int
	// Username authenticates both the CLI and WebAdmin.
	Username string
	// Password is the plaintext password (already unsealed by the caller).
	Password string
	// Timeout is the per-operation network timeout. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (t Target) timeout() time.Duration {
	if t.Timeout <= 0 {
		return DefaultTimeout
	}
	return t.Timeout
}
