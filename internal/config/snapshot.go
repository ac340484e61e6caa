package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSnapshot reads the bundled JSON snapshot for a provider from
// <configDir>/snapshots/<id>.json. A missing snapshot returns (nil, nil);
// fetchers treat that as "no fallback available".
func LoadSnapshot(configDir, providerID string) (map[string]any, error) {
	if providerID == "" {
		return nil, nil
	}
	path := filepath.Join(configDir, "snapshots", providerID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return payload, nil
}
