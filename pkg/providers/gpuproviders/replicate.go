package gpuproviders

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/pkg/providers/shared"
)

const replicateDefaultURL = "https://api.replicate.com/v1/pricing"

func init() {
	Register(&Replicate{})
}

// Replicate fetches hardware pricing from the Replicate API. The feed quotes
// per-minute prices; records are converted to per-hour. A token from provider
// extras is sent as the Authorization header.
type Replicate struct{}

func (p *Replicate) Key() string        { return "replicate" }
func (p *Replicate) Name() string       { return "Replicate" }
func (p *Replicate) LandingURL() string { return "https://replicate.com/pricing" }

func (p *Replicate) Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error) {
	url := extraString(cfg.Extra, "base_url", replicateDefaultURL)
	var headers map[string]string
	if token := extraString(cfg.Extra, "token", ""); token != "" {
		headers = map[string]string{"Authorization": "Token " + token}
	}

	var payload map[string]any
	body, err := deps.Client.Get(ctx, url, headers)
	if err == nil {
		if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
			err = fmt.Errorf("decode response: %w", decodeErr)
		}
	}
	if err != nil {
		log.Printf("replicate: failed to fetch pricing (%v)", err)
		if deps.Snapshot != nil {
			snapshot, snapErr := deps.Snapshot(cfg.ID)
			if snapErr == nil && snapshot != nil {
				log.Printf("replicate: using bundled snapshot data")
				payload = snapshot
			}
		}
		if payload == nil {
			return nil, fmt.Errorf("replicate: %w", err)
		}
	}

	items, _ := shared.FirstNonNil(payload["prices"], payload["hardware"]).([]any)
	var records []market.RawRecord
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		gpu := extraString(item, "gpu", extraString(item, "name", ""))
		perHour, hourOK := shared.ParseFloat(item["usd_per_hour"])
		if !hourOK {
			if perMinute, minuteOK := shared.ParseFloat(shared.FirstNonNil(item["usd_per_minute"], item["price_per_minute"])); minuteOK {
				perHour, hourOK = perMinute*60.0, true
			}
		}
		if gpu == "" || !hourOK {
			continue
		}
		records = append(records, market.RawRecord{
			"gpu":          gpu,
			"usd_per_hour": perHour,
			"provider_id":  cfg.ID,
			"sku":          item["hardware"],
			"region":       item["region"],
			"on_demand":    true,
			"spot":         false,
			"source_url":   url,
			"fetched_at":   now,
		})
	}
	return records, nil
}
