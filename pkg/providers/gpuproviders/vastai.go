package gpuproviders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/pkg/providers/shared"
)

const vastDefaultURL = "https://api.vast.ai/v0/bundles/public"

func init() {
	Register(&VastAI{})
}

// VastAI fetches marketplace offers from the Vast.ai public bundles feed.
// All offers are interruptible, so records are marked spot.
type VastAI struct{}

func (p *VastAI) Key() string        { return "vast_ai" }
func (p *VastAI) Name() string       { return "Vast.ai" }
func (p *VastAI) LandingURL() string { return "https://vast.ai/pricing" }

func (p *VastAI) Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error) {
	url := extraString(cfg.Extra, "base_url", vastDefaultURL)
	body, err := deps.Client.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vast_ai: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("vast_ai: decode response: %w", err)
	}

	offers, _ := shared.FirstNonNil(payload["offers"], payload["data"]).([]any)
	var records []market.RawRecord
	for _, raw := range offers {
		offer, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		gpu := extraString(offer, "gpu_name", extraString(offer, "gpu_type", extraString(offer, "gpu", "")))
		price, priceOK := shared.ParseFloat(shared.FirstNonNil(offer["dph_total"], offer["price_per_gpu_hour"], offer["total_hourly_cost"]))
		if gpu == "" || !priceOK {
			continue
		}
		records = append(records, market.RawRecord{
			"gpu":          gpu,
			"usd_per_hour": price,
			"provider_id":  cfg.ID,
			"sku":          shared.FirstNonNil(offer["id"], offer["instance_id"]),
			"region":       shared.FirstNonNil(offer["region"], offer["geolocation"]),
			"on_demand":    false,
			"spot":         true,
			"source_url":   url,
			"fetched_at":   now,
		})
	}
	return records, nil
}
