package server

import (
	"github.com/koyomi-dev/koyomi/internal/logging"
)

// Config holds the server settings.
type Config struct {
	// ListenAddr is the address passed to http.Server, e.g. ":8990".
	ListenAddr string

	// RefreshSchedule is the cron spec for the background holiday refresh.
	// Empty disables the refresh job.
	RefreshSchedule string

	Logger logging.Logger
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8990",
		RefreshSchedule: "@daily",
	}
}
