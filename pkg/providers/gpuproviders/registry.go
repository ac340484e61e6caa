package gpuproviders

import (
	"sort"
	"sync"

	"github.com/bher20/gpumarketwatch/internal/config"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]GpuProvider)
)

// Register registers a GPU pricing provider.
func Register(p GpuProvider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if p == nil {
		panic("gpuproviders: Register provider is nil")
	}
	if _, dup := registry[p.Key()]; dup {
		panic("gpuproviders: Register called twice for provider " + p.Key())
	}
	registry[p.Key()] = p
}

// Get returns a GPU provider by key.
func Get(key string) (GpuProvider, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[key]
	return p, ok
}

// Resolve looks up the provider for a configuration entry. The module field
// selects the fetcher; it defaults to the provider id.
func Resolve(cfg config.ProviderConfig) (GpuProvider, bool) {
	key := cfg.Module
	if key == "" {
		key = cfg.ID
	}
	return Get(key)
}

// List returns a sorted list of registered provider keys.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var keys []string
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAll returns all registered providers sorted by key.
func GetAll() []GpuProvider {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]GpuProvider, 0, len(keys))
	for _, k := range keys {
		out = append(out, registry[k])
	}
	return out
}
