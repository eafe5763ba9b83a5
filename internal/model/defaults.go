package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultPollInterval  = 2 * time.Second
	DefaultHistoryLimit  = 50
	DefaultBulletinEvery = 30 * time.Minute
)
