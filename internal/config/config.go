// Package config loads the three configuration files (settings, providers,
// dashboard) through the indentation-sensitive parser, applies environment
// overrides for provider credentials, and reads service-level settings from
// the environment.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bher20/gpumarketwatch/internal/confparse"
)

// HTTPSettings tunes the shared outbound HTTP client.
type HTTPSettings struct {
	TimeoutS   int
	MaxRetries int
	BackoffS   float64
	UserAgent  string
}

// RunSettings controls pipeline behavior per run.
type RunSettings struct {
	WriteHistory   bool
	FailOnAnyError bool
}

// Settings holds everything from settings.yaml.
type Settings struct {
	HTTP HTTPSettings
	Run  RunSettings
}

// ProviderConfig is one entry from providers.yaml. Keys other than id,
// enabled and module land in Extra and are passed through to the fetcher.
type ProviderConfig struct {
	ID      string
	Enabled bool
	Module  string
	Extra   map[string]any
}

// DashboardConfig drives static site generation.
type DashboardConfig struct {
	Title    string
	Intro    string
	Sections []map[string]any
}

// Config bundles the three file-based configurations.
type Config struct {
	Settings  Settings
	Providers []ProviderConfig
	Dashboard DashboardConfig
}

// DefaultSettings are used whenever settings.yaml is missing or malformed.
func DefaultSettings() Settings {
	return Settings{
		HTTP: HTTPSettings{
			TimeoutS:   30,
			MaxRetries: 2,
			BackoffS:   2,
			UserAgent:  "gpu-market-watch/1.0",
		},
		Run: RunSettings{
			WriteHistory:   true,
			FailOnAnyError: false,
		},
	}
}

// DefaultDashboard is used whenever dashboard.yaml is missing or malformed.
func DefaultDashboard() DashboardConfig {
	return DashboardConfig{Title: "GPU Market Watch"}
}

// Load reads settings.yaml, providers.yaml and dashboard.yaml from dir.
// Each file independently falls back to its defaults on a read or parse
// failure, so a single bad file never takes the whole pipeline down.
func Load(dir string) Config {
	return Config{
		Settings:  LoadSettings(filepath.Join(dir, "settings.yaml")),
		Providers: LoadProviders(filepath.Join(dir, "providers.yaml")),
		Dashboard: LoadDashboard(filepath.Join(dir, "dashboard.yaml")),
	}
}

// LoadSettings parses settings.yaml, falling back to defaults per value.
func LoadSettings(path string) Settings {
	out := DefaultSettings()
	root, ok := loadFile(path)
	if !ok {
		return out
	}
	if httpNode, found := root.Get("http"); found {
		out.HTTP.TimeoutS = intOr(httpNode, "timeout_s", out.HTTP.TimeoutS)
		out.HTTP.MaxRetries = intOr(httpNode, "max_retries", out.HTTP.MaxRetries)
		out.HTTP.BackoffS = floatOr(httpNode, "backoff_s", out.HTTP.BackoffS)
		out.HTTP.UserAgent = stringOr(httpNode, "user_agent", out.HTTP.UserAgent)
	}
	if runNode, found := root.Get("run"); found {
		out.Run.WriteHistory = boolOr(runNode, "write_history", out.Run.WriteHistory)
		out.Run.FailOnAnyError = boolOr(runNode, "fail_on_any_error", out.Run.FailOnAnyError)
	}
	return out
}

// LoadProviders parses providers.yaml and applies environment overrides.
// A missing or malformed file yields an empty provider list.
func LoadProviders(path string) []ProviderConfig {
	var providers []ProviderConfig
	root, ok := loadFile(path)
	if ok {
		if listNode, found := root.Get("providers"); found {
			items, err := listNode.AsList()
			if err != nil {
				log.Printf("config: providers key is not a list in %s: %v", path, err)
			}
			for _, item := range items {
				cfg := ProviderConfig{
					ID:      stringOr(item, "id", ""),
					Enabled: boolOr(item, "enabled", true),
					Module:  stringOr(item, "module", ""),
					Extra:   make(map[string]any),
				}
				if cfg.ID == "" {
					continue
				}
				for _, key := range item.Keys() {
					if key == "id" || key == "enabled" || key == "module" {
						continue
					}
					child, _ := item.Get(key)
					cfg.Extra[key] = child.Interface()
				}
				providers = append(providers, cfg)
			}
		}
	}
	applyEnvOverrides(providers)
	return providers
}

// LoadDashboard parses dashboard.yaml, falling back to defaults.
func LoadDashboard(path string) DashboardConfig {
	out := DefaultDashboard()
	root, ok := loadFile(path)
	if !ok {
		return out
	}
	out.Title = stringOr(root, "title", out.Title)
	out.Intro = stringOr(root, "intro", out.Intro)
	if sectionsNode, found := root.Get("sections"); found {
		if items, err := sectionsNode.AsList(); err == nil {
			for _, item := range items {
				if section, ok := item.Interface().(map[string]any); ok {
					out.Sections = append(out.Sections, section)
				}
			}
		}
	}
	return out
}

// envShortcuts maps well-known vendor environment variables onto a provider
// credential. A GPU_MARKET_* prefixed variable takes precedence over these.
var envShortcuts = map[string]struct{ providerID, key string }{
	"RUNPOD_API_KEY":      {"runpod", "token"},
	"REPLICATE_API_TOKEN": {"replicate", "token"},
	"LAMBDA_API_KEY":      {"lambda_labs", "token"},
}

const envPrefix = "GPU_MARKET_"

// applyEnvOverrides merges credentials from the environment into provider
// extras. GPU_MARKET_<ID>_<KEY>=v sets extra[lower(key)]=v on the provider
// whose id matches; known vendor shortcuts apply when no prefixed variable
// sets the same key.
func applyEnvOverrides(providers []ProviderConfig) {
	for env, target := range envShortcuts {
		value := os.Getenv(env)
		if value == "" {
			continue
		}
		for i := range providers {
			if providers[i].ID == target.providerID {
				providers[i].Extra[target.key] = value
			}
		}
	}
	for _, pair := range os.Environ() {
		name, value, found := strings.Cut(pair, "=")
		if !found || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		rest := strings.TrimPrefix(name, envPrefix)
		for i := range providers {
			idPrefix := strings.ToUpper(providers[i].ID) + "_"
			if !strings.HasPrefix(rest, idPrefix) {
				continue
			}
			key := strings.ToLower(strings.TrimPrefix(rest, idPrefix))
			if key == "" {
				continue
			}
			providers[i].Extra[key] = value
		}
	}
}

func loadFile(path string) (confparse.Node, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config: read %s: %v, using defaults", path, err)
		}
		return confparse.Node{}, false
	}
	root, err := confparse.Parse(string(data))
	if err != nil {
		log.Printf("config: parse %s: %v, using defaults", path, err)
		return confparse.Node{}, false
	}
	return root, true
}

func stringOr(n confparse.Node, key, fallback string) string {
	child, ok := n.Get(key)
	if !ok {
		return fallback
	}
	s, err := child.AsString()
	if err != nil {
		return fallback
	}
	return s
}

func boolOr(n confparse.Node, key string, fallback bool) bool {
	child, ok := n.Get(key)
	if !ok {
		return fallback
	}
	b, err := child.AsBool()
	if err != nil {
		return fallback
	}
	return b
}

func intOr(n confparse.Node, key string, fallback int) int {
	child, ok := n.Get(key)
	if !ok {
		return fallback
	}
	i, err := child.AsInt()
	if err != nil {
		return fallback
	}
	return int(i)
}

func floatOr(n confparse.Node, key string, fallback float64) float64 {
	child, ok := n.Get(key)
	if !ok {
		return fallback
	}
	f, err := child.AsFloat()
	if err != nil {
		return fallback
	}
	return f
}
