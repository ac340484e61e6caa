// Package gpuproviders holds the fetchers for each GPU rental marketplace.
// Each provider registers itself from an init function and turns a vendor
// response (JSON API or pricing page HTML) into raw offer records for the
// normalizer.
package gpuproviders

import (
	"context"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/fetch"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/pkg/providers"
)

// Deps carries what a fetcher needs at run time: the shared HTTP client and
// a loader for bundled snapshot payloads used when the live endpoint is
// unreachable.
type Deps struct {
	Client   *fetch.Client
	Snapshot func(providerID string) (map[string]any, error)
}

// GpuProvider is the interface all GPU pricing providers implement.
type GpuProvider interface {
	providers.Provider

	// Fetch retrieves current offers. Records are raw; validation and
	// canonicalization happen downstream.
	Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error)
}

// extraString reads a string from provider extras with a fallback.
func extraString(extra map[string]any, key, fallback string) string {
	if v, ok := extra[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
