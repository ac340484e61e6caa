package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for providers, archived runs and runtime
// settings.
type Storage interface {
	// Providers
	ListProviders(ctx context.Context) ([]ProviderInfo, error)
	GetProvider(ctx context.Context, key string) (*ProviderInfo, error)
	UpsertProvider(ctx context.Context, p ProviderInfo) error

	// Run archive
	SaveRun(ctx context.Context, run PriceRun, records []PriceRecord) error
	GetLatestRun(ctx context.Context) (*PriceRun, error)
	ListRuns(ctx context.Context, limit int) ([]PriceRun, error)
	ListRunRecords(ctx context.Context, runID string) ([]PriceRecord, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Email notification configuration
	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, config EmailConfig) error

	// Scheduled jobs & locking
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources (no-op for in-memory).
	Close() error
}
