package api

import (
	"encoding/json"
	"net/http"

	"github.com/bher20/gpumarketwatch/pkg/providers/gpuproviders"
)

// ProviderDescriptor describes one registered marketplace fetcher.
type ProviderDescriptor struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	LandingURL string `json:"landing_url"`
}

func RegisterProvidersHandler(mux *http.ServeMux) {
	mux.HandleFunc("/providers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var descriptors []ProviderDescriptor
		for _, p := range gpuproviders.GetAll() {
			descriptors = append(descriptors, ProviderDescriptor{
				Key:        p.Key(),
				Name:       p.Name(),
				LandingURL: p.LandingURL(),
			})
		}

		response := struct {
			Providers []ProviderDescriptor `json:"providers"`
		}{
			Providers: descriptors,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})
}
