package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	// StatsEpochStartMs is 2010-01-01T00:00:00Z, the stats service's
	// all-time window start.
	StatsEpochStartMs int64 = 1262304000000

	// Ranked mode code lists, one per game mode endpoint.
	StatsModes4 = "16.12.9.15.11.8"
	StatsModes3 = "26.24.22.25.23.21"

	SearchPlayerLimit = 9
)

const (
	// PaipuCodePlaying is the gateway's error code for a match still in
	// progress.
	PaipuCodePlaying = 1203
)
