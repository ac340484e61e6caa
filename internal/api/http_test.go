package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/internal/storage"
)

func seedStore(t *testing.T) storage.Storage {
	t.Helper()
	st := storage.NewMemory()
	records := []market.GpuPrice{
		{ContentHash: "h1", GPU: "A100", ProviderID: "runpod", USDPerHour: 1.25, GeneratedAt: time.Now().UTC()},
		{ContentHash: "h2", GPU: "H100", ProviderID: "vast_ai", USDPerHour: 2.5, GeneratedAt: time.Now().UTC()},
	}
	payload, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	run := storage.PriceRun{
		RunID:       "run-1",
		GeneratedAt: time.Now().UTC(),
		Records:     len(records),
		Payload:     payload,
	}
	var stored []storage.PriceRecord
	for _, rec := range records {
		stored = append(stored, storage.NewPriceRecord(run.RunID, rec))
	}
	if err := st.SaveRun(context.Background(), run, stored); err != nil {
		t.Fatal(err)
	}
	return st
}

func testMux(t *testing.T, st storage.Storage) *http.ServeMux {
	t.Helper()
	svc := config.ServiceConfig{
		DataDir: t.TempDir(),
		SiteDir: t.TempDir(),
	}
	return NewMux(svc, st, nil)
}

func TestHealthEndpoints(t *testing.T) {
	mux := testMux(t, seedStore(t))

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d, want 200", path, rec.Code)
		}
	}
}

func TestReadyzWithoutStorage(t *testing.T) {
	mux := testMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz without storage returned %d, want 503", rec.Code)
	}
}

func TestPricesFromArchive(t *testing.T) {
	mux := testMux(t, seedStore(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/prices returned %d", rec.Code)
	}
	var records []market.GpuPrice
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestPricesFromDataFile(t *testing.T) {
	svc := config.ServiceConfig{DataDir: t.TempDir(), SiteDir: t.TempDir()}
	snapshot := `[{"content_hash":"h1","gpu":"A100","provider_id":"runpod","usd_per_hour":1.25}]`
	if err := os.WriteFile(filepath.Join(svc.DataDir, "gpu_prices.json"), []byte(snapshot), 0o644); err != nil {
		t.Fatal(err)
	}
	mux := NewMux(svc, nil, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/prices returned %d", rec.Code)
	}
	var records []market.GpuPrice
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ProviderID != "runpod" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestPricesEmptyWithoutData(t *testing.T) {
	mux := testMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/prices returned %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("empty prices body = %q, want []", body)
	}
}

func TestProviderPricesFilter(t *testing.T) {
	mux := testMux(t, seedStore(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prices/vast_ai", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/prices/vast_ai returned %d", rec.Code)
	}
	var records []market.GpuPrice
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ProviderID != "vast_ai" {
		t.Errorf("unexpected filter result: %+v", records)
	}
}

func TestRunsEndpoint(t *testing.T) {
	mux := testMux(t, seedStore(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/runs returned %d", rec.Code)
	}
	var runs []storage.PriceRun
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-1" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	mux := testMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/providers returned %d", rec.Code)
	}
	var response struct {
		Providers []ProviderDescriptor `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, p := range response.Providers {
		found[p.Key] = true
	}
	for _, key := range []string{"runpod", "lambda_labs", "vast_ai", "replicate", "modal", "hf_endpoints"} {
		if !found[key] {
			t.Errorf("provider %s missing from listing", key)
		}
	}
}

func TestRefreshRequiresPost(t *testing.T) {
	mux := testMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/refresh", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /refresh returned %d, want 405", rec.Code)
	}
}

func TestRootRedirectsToUI(t *testing.T) {
	mux := testMux(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("/ returned %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/ui/" {
		t.Errorf("redirect location = %q, want /ui/", loc)
	}
}
