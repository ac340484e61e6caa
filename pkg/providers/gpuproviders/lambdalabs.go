package gpuproviders

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/pkg/providers/shared"
)

const lambdaDefaultURL = "https://cloud.lambdalabs.com/api/v1/instance-types"

func init() {
	Register(&LambdaLabs{})
}

// LambdaLabs fetches on-demand instance pricing from the Lambda public API.
// When the endpoint is unreachable it falls back to a bundled snapshot so a
// run still produces records for the provider.
type LambdaLabs struct{}

func (p *LambdaLabs) Key() string        { return "lambda_labs" }
func (p *LambdaLabs) Name() string       { return "Lambda Labs" }
func (p *LambdaLabs) LandingURL() string { return "https://lambdalabs.com/service/gpu-cloud" }

func (p *LambdaLabs) Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error) {
	url := extraString(cfg.Extra, "base_url", lambdaDefaultURL)

	var payload map[string]any
	body, err := deps.Client.Get(ctx, url, nil)
	if err == nil {
		if decodeErr := json.Unmarshal(body, &payload); decodeErr != nil {
			err = fmt.Errorf("decode response: %w", decodeErr)
		}
	}
	if err != nil {
		log.Printf("lambda_labs: failed to fetch pricing (%v)", err)
		if deps.Snapshot != nil {
			snapshot, snapErr := deps.Snapshot(cfg.ID)
			if snapErr == nil && snapshot != nil {
				log.Printf("lambda_labs: using bundled snapshot data")
				payload = snapshot
			}
		}
		if payload == nil {
			return nil, fmt.Errorf("lambda_labs: %w", err)
		}
	}

	items := instanceItems(payload)
	var records []market.RawRecord
	for _, item := range items {
		gpu := extraString(item, "gpu_type", extraString(item, "name", ""))
		var price float64
		priceOK := false
		if cents, found := item["price_cents_per_hour"]; found && cents != nil {
			if v, ok := shared.ParseFloat(cents); ok {
				price, priceOK = v/100.0, true
			}
		} else if v, ok := shared.ParseFloat(shared.FirstNonNil(item["usd_per_hour"], item["price_per_hour"])); ok {
			price, priceOK = v, true
		}
		if gpu == "" || !priceOK {
			continue
		}
		records = append(records, market.RawRecord{
			"gpu":          gpu,
			"usd_per_hour": price,
			"provider_id":  cfg.ID,
			"sku":          shared.FirstNonNil(item["instance_type_name"], item["slug"]),
			"region":       item["region"],
			"on_demand":    true,
			"spot":         false,
			"source_url":   url,
			"fetched_at":   now,
		})
	}
	return records, nil
}

// instanceItems extracts instance entries from either payload shape: a list
// under data/instance_types, or a map keyed by instance name. Map entries are
// walked in key order to keep output deterministic.
func instanceItems(payload map[string]any) []map[string]any {
	raw := shared.FirstNonNil(payload["data"], payload["instance_types"])
	switch v := raw.(type) {
	case []any:
		var out []map[string]any
		for _, e := range v {
			if item, ok := e.(map[string]any); ok {
				out = append(out, item)
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []map[string]any
		for _, k := range keys {
			if item, ok := v[k].(map[string]any); ok {
				out = append(out, item)
			}
		}
		return out
	}
	return nil
}
