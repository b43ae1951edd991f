package constants

import "time"

const (
	HTTPTimeout     = 10 * time.Second
	DNSTimeout      = 5 * time.Second
	PersistTimeout  = 5 * time.Second
	ShutdownTimeout = 30 * time.Second
	StartupTimeout  = 10 * time.Second
)
