package gpuproviders

import (
	"context"
	"log"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
)

func init() {
	Register(&HFEndpoints{})
}

// HFEndpoints covers Hugging Face Inference Endpoints. There is no public
// pricing feed yet, so the fetcher reports no offers.
type HFEndpoints struct{}

func (p *HFEndpoints) Key() string  { return "hf_endpoints" }
func (p *HFEndpoints) Name() string { return "Hugging Face Inference Endpoints" }
func (p *HFEndpoints) LandingURL() string {
	return "https://huggingface.co/pricing#endpoints"
}

func (p *HFEndpoints) Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error) {
	log.Printf("hf_endpoints: skipped (no public pricing feed)")
	return nil, nil
}
