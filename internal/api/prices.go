package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/market"
	"github.com/bher20/gpumarketwatch/internal/storage"
)

// latestRecords returns the merged snapshot of the most recent run, taken
// from the run archive when a backend is available, otherwise from the JSON
// artifact on disk.
func latestRecords(ctx context.Context, svc config.ServiceConfig, st storage.Storage) ([]market.GpuPrice, error) {
	if st != nil {
		run, err := st.GetLatestRun(ctx)
		if err != nil {
			return nil, err
		}
		if run != nil && len(run.Payload) > 0 {
			var records []market.GpuPrice
			if err := json.Unmarshal(run.Payload, &records); err != nil {
				return nil, err
			}
			return records, nil
		}
	}

	data, err := os.ReadFile(filepath.Join(svc.DataDir, "gpu_prices.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []market.GpuPrice
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func handlePrices(svc config.ServiceConfig, st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		records, err := latestRecords(r.Context(), svc, st)
		if err != nil {
			log.Printf("api: load latest prices: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []market.GpuPrice{}
		}
		writeJSON(w, records)
	}
}

func handleProviderPrices(svc config.ServiceConfig, st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		providerID := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/prices/"))
		if providerID == "" || strings.Contains(providerID, "/") {
			http.NotFound(w, r)
			return
		}
		records, err := latestRecords(r.Context(), svc, st)
		if err != nil {
			log.Printf("api: load latest prices: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		filtered := []market.GpuPrice{}
		for _, rec := range records {
			if rec.ProviderID == providerID {
				filtered = append(filtered, rec)
			}
		}
		writeJSON(w, filtered)
	}
}

func handleRuns(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if st == nil {
			http.Error(w, "run archive requires a storage backend", http.StatusNotImplemented)
			return
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				limit = v
			}
		}
		runs, err := st.ListRuns(r.Context(), limit)
		if err != nil {
			log.Printf("api: list runs: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if runs == nil {
			runs = []storage.PriceRun{}
		}
		writeJSON(w, runs)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
