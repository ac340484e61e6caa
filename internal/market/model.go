// Package market holds the canonical GPU price record and the normalization
// and merge logic applied to raw provider offers.
package market

import "time"

// RawRecord is one offer as produced by a provider fetcher, before
// validation. Required key: usd_per_hour. Recommended: gpu, provider_id.
type RawRecord = map[string]any

// GpuPrice is the canonical, validated GPU price record. It is constructed
// once by Normalize and never mutated afterwards. Field order matches the
// sorted key order used in persisted artifacts.
type GpuPrice struct {
	ContentHash string    `json:"content_hash"`
	FetchedAt   time.Time `json:"fetched_at"`
	GeneratedAt time.Time `json:"generated_at"`
	GPU         string    `json:"gpu"`
	OnDemand    *bool     `json:"on_demand"`
	ProviderID  string    `json:"provider_id"`
	Region      *string   `json:"region"`
	SKU         *string   `json:"sku"`
	SourceURL   string    `json:"source_url"`
	Spot        *bool     `json:"spot"`
	USDPerHour  float64   `json:"usd_per_hour"`
}

// ValidationError reports a raw record that cannot become a canonical one.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "market: invalid record: " + e.Field + ": " + e.Msg
}
