package gpuproviders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/fetch"
	"github.com/bher20/gpumarketwatch/internal/market"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Client: fetch.NewClient(config.HTTPSettings{
			TimeoutS:   5,
			MaxRetries: 0,
			BackoffS:   0.01,
			UserAgent:  "gpu-market-watch-test/1.0",
		}),
	}
}

func providerCfg(id, baseURL string) config.ProviderConfig {
	extra := map[string]any{}
	if baseURL != "" {
		extra["base_url"] = baseURL
	}
	return config.ProviderConfig{ID: id, Enabled: true, Extra: extra}
}

func jsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistryHasAllProviders(t *testing.T) {
	for _, key := range []string{"runpod", "lambda_labs", "vast_ai", "replicate", "modal", "hf_endpoints"} {
		if _, ok := Get(key); !ok {
			t.Errorf("provider %q not registered", key)
		}
	}
}

func TestResolveFallsBackToID(t *testing.T) {
	if _, ok := Resolve(config.ProviderConfig{ID: "runpod"}); !ok {
		t.Error("Resolve should fall back to the provider id")
	}
	if _, ok := Resolve(config.ProviderConfig{ID: "other", Module: "vast_ai"}); !ok {
		t.Error("Resolve should honor the module field")
	}
	if _, ok := Resolve(config.ProviderConfig{ID: "unknown"}); ok {
		t.Error("unknown provider should not resolve")
	}
}

func TestRunPodFetch(t *testing.T) {
	srv := jsonServer(t, `{"data": [
		{"gpu": "A100 80GB", "usd_per_hour": 1.89, "instance_type": "a100-80", "region": "us", "spot": false},
		{"name": "RTX 4090", "price_per_hour": "0.69"},
		{"gpu": "broken"}
	]}`)

	p, _ := Get("runpod")
	now := time.Now().UTC()
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("runpod", srv.URL), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["gpu"] != "A100 80GB" || records[0]["usd_per_hour"] != 1.89 {
		t.Errorf("unexpected first record: %v", records[0])
	}
	if records[0]["on_demand"] != true {
		t.Error("runpod offers are on-demand")
	}
	if records[1]["gpu"] != "RTX 4090" {
		t.Errorf("name fallback not applied: %v", records[1])
	}
}

func TestRunPodFetchBareArray(t *testing.T) {
	srv := jsonServer(t, `[{"gpu": "H100", "hourly": 2.5}]`)
	p, _ := Get("runpod")
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("runpod", srv.URL), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0]["usd_per_hour"] != 2.5 {
		t.Errorf("unexpected records: %v", records)
	}
}

func TestLambdaLabsConvertsCents(t *testing.T) {
	srv := jsonServer(t, `{"data": {
		"gpu_1x_a100": {"gpu_type": "A100", "price_cents_per_hour": 110, "instance_type_name": "gpu_1x_a100", "region": "us-east-1"},
		"gpu_1x_h100": {"gpu_type": "H100", "price_cents_per_hour": 249}
	}}`)

	p, _ := Get("lambda_labs")
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("lambda_labs", srv.URL), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Map keys are walked in sorted order: a100 before h100.
	if records[0]["gpu"] != "A100" || records[0]["usd_per_hour"] != 1.1 {
		t.Errorf("cents not converted: %v", records[0])
	}
	if records[1]["usd_per_hour"] != 2.49 {
		t.Errorf("unexpected price: %v", records[1])
	}
}

func TestLambdaLabsSnapshotFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	deps := testDeps(t)
	deps.Snapshot = func(providerID string) (map[string]any, error) {
		if providerID != "lambda_labs" {
			t.Errorf("snapshot requested for %q", providerID)
		}
		return map[string]any{
			"data": map[string]any{
				"gpu_1x_a100": map[string]any{"gpu_type": "A100", "price_cents_per_hour": float64(110)},
			},
		}, nil
	}

	p, _ := Get("lambda_labs")
	records, err := p.Fetch(context.Background(), deps, providerCfg("lambda_labs", srv.URL), time.Now().UTC())
	if err != nil {
		t.Fatalf("snapshot fallback should succeed: %v", err)
	}
	if len(records) != 1 || records[0]["usd_per_hour"] != 1.1 {
		t.Errorf("unexpected records: %v", records)
	}
}

func TestLambdaLabsNoSnapshotPropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := Get("lambda_labs")
	if _, err := p.Fetch(context.Background(), testDeps(t), providerCfg("lambda_labs", srv.URL), time.Now().UTC()); err == nil {
		t.Error("expected error when fetch fails and no snapshot exists")
	}
}

func TestVastAIMarksSpot(t *testing.T) {
	srv := jsonServer(t, `{"offers": [
		{"gpu_name": "RTX 3090", "dph_total": 0.21, "id": 12345, "geolocation": "PL"}
	]}`)

	p, _ := Get("vast_ai")
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("vast_ai", srv.URL), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec["spot"] != true || rec["on_demand"] != false {
		t.Errorf("vast offers are spot-only: %v", rec)
	}
	if rec["region"] != "PL" {
		t.Errorf("geolocation fallback not applied: %v", rec)
	}
}

func TestReplicateConvertsPerMinuteAndSendsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"prices": [
			{"gpu": "A100 80GB", "usd_per_minute": 0.023, "hardware": "gpu-a100-large"},
			{"gpu": "T4", "usd_per_hour": 0.81, "hardware": "gpu-t4"}
		]}`))
	}))
	defer srv.Close()

	cfg := providerCfg("replicate", srv.URL)
	cfg.Extra["token"] = "r8_secret"
	p, _ := Get("replicate")
	records, err := p.Fetch(context.Background(), testDeps(t), cfg, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Token r8_secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := records[0]["usd_per_hour"].(float64); got < 1.379 || got > 1.381 {
		t.Errorf("per-minute price not converted: %v", got)
	}
	if records[1]["usd_per_hour"] != 0.81 {
		t.Errorf("per-hour price mangled: %v", records[1]["usd_per_hour"])
	}
}

func TestModalScrapesPricingTable(t *testing.T) {
	page := `<html><body><table>
		<tr><th>GPU</th><th>Price</th><th>Plan</th></tr>
		<tr><td>H100</td><td>$4.56/hr</td><td>standard</td></tr>
		<tr><td>A100 80GB</td><td>$2.78</td><td>standard</td></tr>
		<tr><td>incomplete row</td></tr>
	</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	p, _ := Get("modal")
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("modal", srv.URL), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["gpu"] != "H100" || records[0]["usd_per_hour"] != 4.56 {
		t.Errorf("unexpected record: %v", records[0])
	}
	if records[0]["sku"] != "standard" {
		t.Errorf("plan column should map to sku: %v", records[0])
	}
}

func TestModalNoTableYieldsNoRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no tables here</p></body></html>"))
	}))
	defer srv.Close()

	p, _ := Get("modal")
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("modal", srv.URL), time.Now().UTC())
	if err != nil {
		t.Fatalf("missing table is not an error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %v", records)
	}
}

func TestHFEndpointsReturnsNothing(t *testing.T) {
	p, _ := Get("hf_endpoints")
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("hf_endpoints", ""), time.Now().UTC())
	if err != nil || records != nil {
		t.Errorf("stub should return (nil, nil), got (%v, %v)", records, err)
	}
}

func TestFetchedRecordsNormalize(t *testing.T) {
	srv := jsonServer(t, `{"data": [{"gpu": "a100_80g", "usd_per_hour": 1.99, "region": "us"}]}`)
	p, _ := Get("runpod")
	now := time.Now().UTC()
	records, err := p.Fetch(context.Background(), testDeps(t), providerCfg("runpod", srv.URL), now)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := market.Normalize(records[0], now)
	if err != nil {
		t.Fatalf("fetched record failed normalization: %v", err)
	}
	if rec.GPU != "A100 80GB" || rec.ProviderID != "runpod" {
		t.Errorf("unexpected canonical record: %+v", rec)
	}
}
