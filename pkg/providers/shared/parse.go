package shared

import (
	"strconv"
	"strings"
)

// ParseFloat converts a loosely typed value to a float64. Numeric strings
// are accepted; anything else reports false.
func ParseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ParseMoney parses a price cell like "$1,234.56" or "$1.10/hr", stripping
// the currency symbol, thousands separators and a per-hour suffix.
func ParseMoney(v any) (float64, bool) {
	if f, ok := v.(float64); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return 0, false
		}
		return ParseFloat(v)
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	cleaned = strings.TrimSuffix(cleaned, "/hr")
	cleaned = strings.TrimSuffix(cleaned, "/h")
	f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	return f, err == nil
}

// FirstNonNil returns the first non-nil value among candidates.
func FirstNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
