// Package pipeline orchestrates one price collection run: fetch every
// enabled provider, normalize and merge the offers, persist the artifacts,
// render the report and dashboard, and archive the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bher20/gpumarketwatch/internal/alerting"
	"github.com/bher20/gpumarketwatch/internal/artifact"
	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/fetch"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/internal/metrics"
	"github.com/bher20/gpumarketwatch/internal/notification"
	"github.com/bher20/gpumarketwatch/internal/render"
	"github.com/bher20/gpumarketwatch/internal/storage"
	"github.com/bher20/gpumarketwatch/pkg/providers"
	"github.com/bher20/gpumarketwatch/pkg/providers/gpuproviders"
)

// Options configures a pipeline run. Store, Alerter and Notifier are
// optional; when nil the corresponding step is skipped.
type Options struct {
	ConfigDir  string
	DataDir    string
	ReportsDir string
	SiteDir    string

	Store    storage.Storage
	Alerter  *alerting.Alerter
	Notifier *notification.Service
}

// Result summarizes a completed run.
type Result struct {
	RunID    string
	Records  []market.GpuPrice
	Changed  bool
	Failures map[string]string
	Duration time.Duration
}

// Run executes the full pipeline once.
func Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	now := started.UTC()
	runID := uuid.New().String()

	cfg := config.Load(opts.ConfigDir)
	client := fetch.NewClient(cfg.Settings.HTTP)
	deps := gpuproviders.Deps{
		Client: client,
		Snapshot: func(providerID string) (map[string]any, error) {
			return config.LoadSnapshot(opts.ConfigDir, providerID)
		},
	}

	raws, failures := fetchAll(ctx, deps, cfg.Providers, now)
	if cfg.Settings.Run.FailOnAnyError && len(failures) > 0 {
		return nil, fmt.Errorf("pipeline: %d provider(s) failed: %s", len(failures), failureList(failures))
	}

	var normalized []market.GpuPrice
	for _, raw := range raws {
		rec, err := market.Normalize(raw, now)
		if err != nil {
			log.Printf("pipeline: dropping record from %v: %v", raw["provider_id"], err)
			continue
		}
		normalized = append(normalized, rec)
	}
	merged := market.Merge(normalized)

	changed, err := artifact.WriteJSON(filepath.Join(opts.DataDir, "gpu_prices.json"), merged)
	if err != nil {
		return nil, fmt.Errorf("pipeline: write json: %w", err)
	}
	if _, err := artifact.WriteCSV(filepath.Join(opts.DataDir, "gpu_prices.csv"), merged); err != nil {
		return nil, fmt.Errorf("pipeline: write csv: %w", err)
	}

	historyPath := filepath.Join(opts.DataDir, "history.jsonl")
	if changed && cfg.Settings.Run.WriteHistory {
		entry := artifact.HistoryEntry{
			GeneratedAt: now.Format(time.RFC3339Nano),
			RunID:       runID,
			Records:     merged,
		}
		if err := artifact.AppendHistory(historyPath, entry); err != nil {
			return nil, fmt.Errorf("pipeline: append history: %w", err)
		}
	}

	history, err := artifact.ReadHistory(historyPath)
	if err != nil {
		log.Printf("pipeline: read history: %v", err)
	}
	report := render.GenerateReport(merged, history, now)
	if _, err := artifact.WriteText(filepath.Join(opts.ReportsDir, "README.md"), report); err != nil {
		return nil, fmt.Errorf("pipeline: write report: %w", err)
	}

	pages, err := render.GenerateDashboard(cfg.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("pipeline: render dashboard: %w", err)
	}
	for name, content := range pages {
		if _, err := artifact.WriteText(filepath.Join(opts.SiteDir, name), content); err != nil {
			return nil, fmt.Errorf("pipeline: write site page %s: %w", name, err)
		}
	}

	duration := time.Since(started)
	metrics.UpdateRunMetrics(len(merged), changed)
	log.Printf("pipeline: run %s finished, %d offers, %d failures, changed=%v in %s",
		runID, len(merged), len(failures), changed, duration.Round(time.Millisecond))

	run := storage.PriceRun{
		RunID:       runID,
		GeneratedAt: now,
		Records:     len(merged),
		Failures:    len(failures),
		Changed:     changed,
		DurationMs:  duration.Milliseconds(),
	}
	if opts.Store != nil {
		if err := archiveRun(ctx, opts.Store, run, merged); err != nil {
			log.Printf("pipeline: archive run: %v", err)
		}
	}

	if len(failures) > 0 {
		notifyFailures(ctx, opts, run, cfg.Providers, failures, duration, now)
	}

	return &Result{
		RunID:    runID,
		Records:  merged,
		Changed:  changed,
		Failures: failures,
		Duration: duration,
	}, nil
}

// fetchAll runs every enabled provider concurrently. Records land in
// per-provider slots so the combined order does not depend on scheduling.
func fetchAll(ctx context.Context, deps gpuproviders.Deps, configs []config.ProviderConfig, now time.Time) ([]market.RawRecord, map[string]string) {
	type slot struct {
		records []market.RawRecord
		err     error
	}
	slots := make([]slot, len(configs))

	var wg sync.WaitGroup
	for i, pcfg := range configs {
		if !pcfg.Enabled {
			log.Printf("pipeline: %s: disabled, skipping", pcfg.ID)
			continue
		}
		provider, ok := gpuproviders.Resolve(pcfg)
		if !ok {
			slots[i].err = fmt.Errorf("%w: no module registered for %q", providers.ErrProviderNotFound, pcfg.ID)
			continue
		}
		wg.Add(1)
		go func(i int, provider gpuproviders.GpuProvider, pcfg config.ProviderConfig) {
			defer wg.Done()
			fetchStarted := time.Now()
			records, err := provider.Fetch(ctx, deps, pcfg, now)
			metrics.UpdateProviderMetrics(pcfg.ID, fetchStarted, len(records), err)
			if err != nil {
				log.Printf("pipeline: %s: fetch failed: %v", pcfg.ID, err)
				slots[i] = slot{err: err}
				return
			}
			log.Printf("pipeline: %s: fetched %d offers", pcfg.ID, len(records))
			slots[i] = slot{records: records}
		}(i, provider, pcfg)
	}
	wg.Wait()

	var raws []market.RawRecord
	failures := make(map[string]string)
	for i, s := range slots {
		if s.err != nil {
			failures[configs[i].ID] = s.err.Error()
			continue
		}
		raws = append(raws, s.records...)
	}
	return raws, failures
}

func archiveRun(ctx context.Context, store storage.Storage, run storage.PriceRun, merged []market.GpuPrice) error {
	payload, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	run.Payload = payload
	records := make([]storage.PriceRecord, 0, len(merged))
	for _, rec := range merged {
		records = append(records, storage.NewPriceRecord(run.RunID, rec))
	}
	return store.SaveRun(ctx, run, records)
}

func notifyFailures(ctx context.Context, opts Options, run storage.PriceRun, configs []config.ProviderConfig, failures map[string]string, duration time.Duration, now time.Time) {
	if opts.Alerter != nil {
		alert := alerting.RunAlert{
			RunID:          run.RunID,
			TotalProviders: len(configs),
			SuccessCount:   len(configs) - len(failures),
			FailedCount:    len(failures),
			Duration:       duration,
			FailedDetails:  failureDetails(failures),
			Timestamp:      now,
		}
		if err := opts.Alerter.SendRunAlert(ctx, alert); err != nil {
			log.Printf("pipeline: send alert: %v", err)
		}
	}
	if opts.Notifier != nil {
		if err := opts.Notifier.SendRunDigest(ctx, run, failures); err != nil {
			log.Printf("pipeline: send digest: %v", err)
		}
	}
}

func failureDetails(failures map[string]string) []alerting.ProviderFailure {
	ids := make([]string, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]alerting.ProviderFailure, 0, len(ids))
	for _, id := range ids {
		out = append(out, alerting.ProviderFailure{Provider: id, Error: failures[id]})
	}
	return out
}

func failureList(failures map[string]string) string {
	details := failureDetails(failures)
	parts := make([]string, 0, len(details))
	for _, d := range details {
		parts = append(parts, d.Provider)
	}
	return strings.Join(parts, ", ")
}
