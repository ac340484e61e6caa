package gpuproviders

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/pkg/providers/shared"
)

const modalDefaultURL = "https://modal.com/pricing"

func init() {
	Register(&Modal{})
}

// Modal scrapes GPU pricing from the Modal pricing page. There is no public
// API; the first table on the page carries the hardware rates.
type Modal struct{}

func (p *Modal) Key() string        { return "modal" }
func (p *Modal) Name() string       { return "Modal" }
func (p *Modal) LandingURL() string { return modalDefaultURL }

func (p *Modal) Fetch(ctx context.Context, deps Deps, cfg config.ProviderConfig, now time.Time) ([]market.RawRecord, error) {
	url := extraString(cfg.Extra, "base_url", modalDefaultURL)
	body, err := deps.Client.Get(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("modal: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("modal: parse page: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		log.Printf("modal: pricing table not found, skipping")
		return nil, nil
	}

	var headers []string
	table.Find("th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(s.Text())))
	})

	var records []market.RawRecord
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 || len(cells) != len(headers) {
			return
		}
		data := make(map[string]any, len(headers))
		for i, h := range headers {
			data[h] = cells[i]
		}
		gpu := extraString(data, "gpu", extraString(data, "hardware", ""))
		price, priceOK := shared.ParseMoney(shared.FirstNonNil(data["price"], data["$/hr"], data["usd/hr"]))
		if gpu == "" || !priceOK {
			return
		}
		records = append(records, market.RawRecord{
			"gpu":          gpu,
			"usd_per_hour": price,
			"provider_id":  cfg.ID,
			"sku":          shared.FirstNonNil(data["plan"], data["sku"]),
			"region":       data["region"],
			"on_demand":    true,
			"spot":         false,
			"source_url":   url,
			"fetched_at":   now,
		})
	})
	return records, nil
}
