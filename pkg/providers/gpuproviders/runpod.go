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

const runpodDefaultURL = "https://api.runpod.io/pricing"

func init() {
	Register(&RunPod{})
}

// RunPod fetches GPU pricing from the RunPod public pricing API.
type RunPod struct{}

func (p *RunPod) Key() string        { return "runpod" }
func (p *RunPod) Name() string       { return "RunPod" }
func (p *RunPod) LandingURL() string { return "https://www.runpod.io/gpu-instance/pricing" }

func (p *RunPod) Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error) {
	url := extraString(cfg.Extra, "base_url", runpodDefaultURL)
	body, err := deps.Client.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("runpod: %w", err)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("runpod: decode response: %w", err)
	}

	// The feed has shipped both shapes: a bare array of offers and an
	// object wrapping them under data/pricings/gpus.
	var list []any
	switch v := payload.(type) {
	case []any:
		list = v
	case map[string]any:
		items := shared.FirstNonNil(v["data"], v["pricings"], v["gpus"])
		list, _ = items.([]any)
	}

	var records []market.RawRecord
	for _, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		gpu := extraString(item, "gpu", extraString(item, "name", ""))
		price, priceOK := shared.ParseFloat(shared.FirstNonNil(item["usd_per_hour"], item["price_per_hour"], item["hourly"]))
		if gpu == "" || !priceOK {
			continue
		}
		spot := any(false)
		if v, found := item["spot"]; found {
			spot = v
		}
		records = append(records, market.RawRecord{
			"gpu":          gpu,
			"usd_per_hour": price,
			"provider_id":  cfg.ID,
			"sku":          shared.FirstNonNil(item["instance_type"], item["sku"]),
			"region":       item["region"],
			"on_demand":    true,
			"spot":         spot,
			"source_url":   url,
			"fetched_at":   now,
		})
	}
	return records, nil
}
