package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/pipeline"
	"github.com/bher20/gpumarketwatch/internal/storage"
)

// RefreshResponse is the response structure for the refresh endpoint.
type RefreshResponse struct {
	RunID    string            `json:"run_id"`
	Records  int               `json:"records"`
	Changed  bool              `json:"changed"`
	Failures map[string]string `json:"failures,omitempty"`
	Status   string            `json:"status"`
	Error    string            `json:"error,omitempty"`
}

// RegisterRefreshHandler wires the manual refresh endpoint used by CronJobs
// and operators.
func RegisterRefreshHandler(mux *http.ServeMux, svc config.ServiceConfig, st storage.Storage) {
	mux.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		res, err := pipeline.Run(r.Context(), pipeline.Options{
			ConfigDir:  svc.ConfigDir,
			DataDir:    svc.DataDir,
			ReportsDir: svc.ReportsDir,
			SiteDir:    svc.SiteDir,
			Store:      st,
		})

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			log.Printf("api: refresh failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(RefreshResponse{Status: "error", Error: err.Error()})
			return
		}

		json.NewEncoder(w).Encode(RefreshResponse{
			RunID:    res.RunID,
			Records:  len(res.Records),
			Changed:  res.Changed,
			Failures: res.Failures,
			Status:   "ok",
		})
	})
}
