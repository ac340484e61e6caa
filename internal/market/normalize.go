package market

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Normalize validates a raw offer and builds the canonical record. The
// returned *ValidationError signals a record that must be dropped (or, with
// fail_on_any_error set, abort the run): usd_per_hour absent, non-numeric,
// or negative. Prices are never silently coerced to zero.
func Normalize(raw RawRecord, generatedAt time.Time) (GpuPrice, error) {
	usd, ok := toFloat(raw["usd_per_hour"])
	if !ok {
		return GpuPrice{}, &ValidationError{Field: "usd_per_hour", Msg: "missing or non-numeric"}
	}
	if usd < 0 {
		return GpuPrice{}, &ValidationError{Field: "usd_per_hour", Msg: "must be non-negative"}
	}

	generatedAt = generatedAt.UTC()
	rec := GpuPrice{
		GPU:         NormalizeGPUName(toString(raw["gpu"])),
		USDPerHour:  usd,
		ProviderID:  toString(raw["provider_id"]),
		SKU:         optString(raw["sku"]),
		Region:      optString(raw["region"]),
		OnDemand:    optBool(raw["on_demand"]),
		Spot:        optBool(raw["spot"]),
		SourceURL:   toString(raw["source_url"]),
		GeneratedAt: generatedAt,
	}

	if v, present := raw["fetched_at"]; present && v != nil {
		t, err := toTime(v)
		if err != nil {
			return GpuPrice{}, &ValidationError{Field: "fetched_at", Msg: err.Error()}
		}
		rec.FetchedAt = t
	} else {
		rec.FetchedAt = generatedAt
	}

	rec.ContentHash = contentHash(rec)
	return rec, nil
}

// contentHash fingerprints the economically meaningful fields only, so the
// same offer fetched at different times hashes identically. The payload is
// serialized with sorted keys and the price rounded to four decimals before
// hashing.
func contentHash(rec GpuPrice) string {
	payload := map[string]any{
		"provider_id":  rec.ProviderID,
		"gpu":          rec.GPU,
		"usd_per_hour": round4(rec.USDPerHour),
		"region":       rec.Region,
		"sku":          rec.SKU,
		"on_demand":    rec.OnDemand,
		"spot":         rec.Spot,
	}
	// encoding/json writes map keys in sorted order, which keeps the digest
	// independent of field insertion order.
	data, err := json.Marshal(payload)
	if err != nil {
		// Only unsupported value types can trip this, and the payload is
		// built from plain scalars above.
		panic(fmt.Sprintf("market: hash payload marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// toFloat converts a raw price value. NaN and infinities are rejected: they
// slip through strconv.ParseFloat ("NaN", "Inf") and would break the hash
// payload, which only carries finite numbers.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, isFinite(x)
	case float32:
		return float64(x), isFinite(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil && isFinite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && isFinite(f)
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// optString distinguishes "absent" from "empty string": a nil or missing
// value stays nil so merge-key comparison never conflates the two.
func optString(v any) *string {
	if v == nil {
		return nil
	}
	s := toString(v)
	return &s
}

func optBool(v any) *bool {
	if v == nil {
		return nil
	}
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case float64:
		b = x != 0
	case int:
		b = x != 0
	case int64:
		b = x != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}

// timestamp layouts accepted from providers, tried in order. Layouts without
// a zone are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts[:2] {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		for _, layout := range timeLayouts[2:] {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	case float64:
		// Seconds since the epoch.
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case int:
		return time.Unix(int64(x), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}
