package market

import "strings"

// gpuNames maps folded key variants to a preferred display name. Keys are
// lowercased with spaces and slashes removed, so "A100-80G", "a100_80g" and
// "A100 80G" all land on the same entry.
var gpuNames = map[string]string{
	"a100_80g": "A100 80GB",
	"a100-80g": "A100 80GB",
	"a10080g":  "A100 80GB",
	"a100":     "A100",
	"rtx_3090": "RTX 3090",
	"rtx3090":  "RTX 3090",
	"rtx_4090": "RTX 4090",
	"rtx4090":  "RTX 4090",
	"h100":     "H100",
	"l40s":     "L40S",
}

// NormalizeGPUName canonicalizes a GPU display name via the variant table.
// Unrecognized names pass through trimmed but otherwise unchanged.
func NormalizeGPUName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "/", "")
	if display, ok := gpuNames[key]; ok {
		return display
	}
	return strings.TrimSpace(name)
}
