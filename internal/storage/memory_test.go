package storage

import (
	"context"
	"testing"
	"time"

	"github.com/bher20/gpumarketwatch/internal/market"
)

func TestNewMemoryWithProvidersPreloads(t *testing.T) {
	ctx := context.Background()
	p := ProviderInfo{
		Key:        "runpod",
		Name:       "RunPod",
		LandingURL: "https://www.runpod.io/gpu-instance/pricing",
		Enabled:    true,
	}

	m := NewMemoryWithProviders([]ProviderInfo{p})
	defer m.Close()

	list, err := m.ListProviders(ctx)
	if err != nil {
		t.Fatalf("ListProviders failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(list))
	}
	if list[0].Key != p.Key || list[0].Name != p.Name {
		t.Fatalf("provider mismatch: want %+v got %+v", p, list[0])
	}

	got, err := m.GetProvider(ctx, "runpod")
	if err != nil || got == nil {
		t.Fatalf("GetProvider: (%v, %v)", got, err)
	}
	missing, err := m.GetProvider(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing provider should be (nil, nil), got (%v, %v)", missing, err)
	}
}

func TestMemoryRunArchive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	if run, err := m.GetLatestRun(ctx); err != nil || run != nil {
		t.Fatalf("empty archive should yield (nil, nil), got (%v, %v)", run, err)
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, err := market.Normalize(market.RawRecord{
		"gpu": "A100", "provider_id": "runpod", "usd_per_hour": 1.5, "region": "us",
	}, now)
	if err != nil {
		t.Fatal(err)
	}

	for i, id := range []string{"run-1", "run-2"} {
		run := PriceRun{
			RunID:       id,
			GeneratedAt: now.Add(time.Duration(i) * time.Hour),
			Records:     1,
			Changed:     i == 0,
		}
		if err := m.SaveRun(ctx, run, []PriceRecord{NewPriceRecord(id, rec)}); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	latest, err := m.GetLatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.RunID != "run-2" {
		t.Errorf("latest run = %+v", latest)
	}

	runs, err := m.ListRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" {
		t.Errorf("runs should be newest first: %+v", runs)
	}

	if runs, _ := m.ListRuns(ctx, 1); len(runs) != 1 {
		t.Errorf("limit not applied: %+v", runs)
	}

	records, err := m.ListRunRecords(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].RunID != "run-1" || records[0].GPU != "A100" {
		t.Errorf("unexpected records: %+v", records)
	}
	if records[0].Region == nil || *records[0].Region != "us" {
		t.Error("region pointer lost in conversion")
	}
	if records[0].OnDemand != nil {
		t.Error("unset on_demand should stay nil")
	}
}

func TestMemorySettingsAndJobs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if v, err := m.GetSetting(ctx, "refresh_interval_seconds"); err != nil || v != "" {
		t.Fatalf("unset setting should be empty, got (%q, %v)", v, err)
	}
	if err := m.SetSetting(ctx, "refresh_interval_seconds", "600"); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.GetSetting(ctx, "refresh_interval_seconds"); v != "600" {
		t.Errorf("setting = %q", v)
	}

	ok, err := m.AcquireAdvisoryLock(ctx, 42)
	if err != nil || !ok {
		t.Errorf("memory lock should always acquire: (%v, %v)", ok, err)
	}
	if err := m.UpdateScheduledJob(ctx, "refresh_prices", time.Now(), time.Second, true, ""); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryEmailConfig(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if cfg, err := m.GetEmailConfig(ctx); err != nil || cfg != nil {
		t.Fatalf("unset email config should be (nil, nil), got (%v, %v)", cfg, err)
	}
	if err := m.SaveEmailConfig(ctx, EmailConfig{Provider: "smtp", FromAddress: "watch@example.com", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	cfg, err := m.GetEmailConfig(ctx)
	if err != nil || cfg == nil || cfg.Provider != "smtp" {
		t.Errorf("email config round trip failed: (%v, %v)", cfg, err)
	}
}

func TestOpenFactoryMemory(t *testing.T) {
	st, err := Open(context.Background(), Config{Driver: "memory", Providers: []ProviderInfo{{Key: "modal"}}})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	list, err := st.ListProviders(context.Background())
	if err != nil || len(list) != 1 {
		t.Errorf("factory memory backend broken: (%v, %v)", list, err)
	}
}

func TestOpenFactoryUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "bogus"}); err == nil {
		t.Error("unknown driver must error")
	}
}
