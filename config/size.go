package config

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeUnits maps a recognized suffix to its byte multiplier. Matching is
// case-insensitive and checked longest-suffix-first.
var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a human size string such as "10 MB", "512KB", or a bare
// number of bytes ("4096") into a byte count. Sink- and redactor-specific
// options (sink_config.*, redactor_config.*) carry free-form maps rather
// than typed fields, so callers pull size-valued entries through this
// helper instead of a koanf decode hook.
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("config: empty size string")
	}

	upper := strings.ToUpper(trimmed)
	for _, u := range sizeUnits {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := strings.TrimSpace(trimmed[:len(trimmed)-len(u.suffix)])
			if numPart == "" {
				continue
			}
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("config: invalid size %q: %w", s, err)
			}
			return int64(n * float64(u.mult)), nil
		}
	}

	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid size %q: %w", s, err)
	}
	return n, nil
}

// GetSize reads key from m and parses it as a size string or bare byte
// count. ok is false if key is absent or unparsable.
func GetSize(m map[string]any, key string) (int64, bool) {
	raw, present := m[key]
	if !present {
		return 0, false
	}
	switch v := raw.(type) {
	case string:
		n, err := ParseSize(v)
		return n, err == nil
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
