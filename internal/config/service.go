package config

import "os"

// ServiceConfig carries the environment-driven settings for the long-running
// surfaces (HTTP API, worker). File-based configuration stays in Config.
type ServiceConfig struct {
	Port          string
	ConfigDir     string
	DataDir       string
	ReportsDir    string
	SiteDir       string
	StorageDriver string
	StorageDSN    string

	// WorkerInterval is either a number of seconds or a five-field cron
	// expression.
	WorkerInterval string

	AlertWebhookURL  string
	AlertWebhookType string
}

// FromEnv builds a ServiceConfig from environment variables, with sane
// defaults.
func FromEnv() ServiceConfig {
	return ServiceConfig{
		Port:             envOr("PORT", "8000"),
		ConfigDir:        envOr("GPU_MARKET_CONFIG_DIR", "config"),
		DataDir:          envOr("GPU_MARKET_DATA_DIR", "data"),
		ReportsDir:       envOr("GPU_MARKET_REPORTS_DIR", "reports"),
		SiteDir:          envOr("GPU_MARKET_SITE_DIR", "docs"),
		StorageDriver:    envOr("GPU_MARKET_STORAGE_DRIVER", "memory"),
		StorageDSN:       os.Getenv("GPU_MARKET_STORAGE_DSN"),
		WorkerInterval:   envOr("GPU_MARKET_WORKER_INTERVAL", "3600"),
		AlertWebhookURL:  os.Getenv("GPU_MARKET_ALERT_WEBHOOK_URL"),
		AlertWebhookType: envOr("GPU_MARKET_ALERT_WEBHOOK_TYPE", "generic"),
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
