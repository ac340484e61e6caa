package storage

import (
	"time"

	"github.com/bher20/gpumarketwatch/internal/market"
)

// ProviderInfo holds metadata about a GPU pricing provider.
type ProviderInfo struct {
	Key        string `json:"key" gorm:"primaryKey;column:key"`
	Name       string `json:"name" gorm:"column:name"`
	LandingURL string `json:"landingUrl" gorm:"column:landing_url"`
	Enabled    bool   `json:"enabled" gorm:"column:enabled"`
	Notes      string `json:"notes,omitempty" gorm:"column:notes"`
}

// TableName keeps the table name aligned with the SQL backends.
func (ProviderInfo) TableName() string { return "providers" }

// PriceRun archives one pipeline execution: headline counts plus the merged
// snapshot payload.
type PriceRun struct {
	RunID       string    `json:"run_id" gorm:"primaryKey;column:run_id"`
	GeneratedAt time.Time `json:"generated_at" gorm:"column:generated_at"`
	Records     int       `json:"records" gorm:"column:records"`
	Failures    int       `json:"failures" gorm:"column:failures"`
	Changed     bool      `json:"changed" gorm:"column:changed"`
	DurationMs  int64     `json:"duration_ms" gorm:"column:duration_ms"`
	Payload     []byte    `json:"-" gorm:"column:payload"`
}

// PriceRecord is one merged offer stored per run for querying over the API.
// Optional fields are pointers so an absent region survives the round trip
// distinct from an empty one.
type PriceRecord struct {
	ID          uint      `json:"-" gorm:"primaryKey;column:id"`
	RunID       string    `json:"run_id" gorm:"index;column:run_id"`
	ContentHash string    `json:"content_hash" gorm:"column:content_hash"`
	ProviderID  string    `json:"provider_id" gorm:"index;column:provider_id"`
	GPU         string    `json:"gpu" gorm:"column:gpu"`
	Region      *string   `json:"region" gorm:"column:region"`
	SKU         *string   `json:"sku" gorm:"column:sku"`
	OnDemand    *bool     `json:"on_demand" gorm:"column:on_demand"`
	Spot        *bool     `json:"spot" gorm:"column:spot"`
	USDPerHour  float64   `json:"usd_per_hour" gorm:"column:usd_per_hour"`
	SourceURL   string    `json:"source_url" gorm:"column:source_url"`
	FetchedAt   time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

// NewPriceRecord converts a canonical record into its storage row.
func NewPriceRecord(runID string, rec market.GpuPrice) PriceRecord {
	return PriceRecord{
		RunID:       runID,
		ContentHash: rec.ContentHash,
		ProviderID:  rec.ProviderID,
		GPU:         rec.GPU,
		Region:      rec.Region,
		SKU:         rec.SKU,
		OnDemand:    rec.OnDemand,
		Spot:        rec.Spot,
		USDPerHour:  rec.USDPerHour,
		SourceURL:   rec.SourceURL,
		FetchedAt:   rec.FetchedAt,
	}
}

// Setting is a key/value row for runtime-tunable options like the worker
// interval.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob tracks the last outcome of a recurring job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}

// EmailConfig holds configuration for email notifications.
type EmailConfig struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Provider    string    `json:"provider" gorm:"column:provider"` // "smtp", "sendgrid", "resend"
	Host        string    `json:"host,omitempty" gorm:"column:host"`
	Port        int       `json:"port,omitempty" gorm:"column:port"`
	Username    string    `json:"username,omitempty" gorm:"column:username"`
	Password    string    `json:"password,omitempty" gorm:"column:password"`
	FromAddress string    `json:"from_address" gorm:"column:from_address"`
	FromName    string    `json:"from_name" gorm:"column:from_name"`
	APIKey      string    `json:"api_key,omitempty" gorm:"column:api_key"`
	Encryption  string    `json:"encryption,omitempty" gorm:"column:encryption"` // "none", "ssl", "tls"
	Enabled     bool      `json:"enabled" gorm:"column:enabled"`
	Recipients  string    `json:"recipients,omitempty" gorm:"column:recipients"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}
