package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Key identifies an independent event stream. Keys are case-sensitive.
type Key string

const (
	// DefaultKey is used when a key is absent or of an unsupported shape.
	DefaultKey Key = "default"

	// MaxKeyLength is the maximum key length in runes; longer keys are truncated.
	MaxKeyLength = 1024
)

// NormalizeKey converts an arbitrary value into a Key.
//
// Strings, numbers and booleans are used as-is (stringified). Slices of those
// primitives are joined with commas. Anything else, and the empty string,
// yields DefaultKey.
func NormalizeKey(raw any) Key {
	var s string
	switch v := raw.(type) {
	case Key:
		s = string(v)
	case string:
		s = v
	case []string:
		s = strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			p, ok := PrimitiveString(item)
			if !ok {
				return DefaultKey
			}
			parts = append(parts, p)
		}
		s = strings.Join(parts, ",")
	default:
		p, ok := PrimitiveString(raw)
		if !ok {
			return DefaultKey
		}
		s = p
	}

	if s == "" {
		return DefaultKey
	}
	return Key(truncateRunes(s, MaxKeyLength))
}

// NormalizeKeys normalizes each value and drops duplicates, keeping first-seen order.
func NormalizeKeys(raw ...any) []Key {
	seen := make(map[Key]struct{}, len(raw))
	keys := make([]Key, 0, len(raw))
	for _, r := range raw {
		k := NormalizeKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// PrimitiveString stringifies strings, numbers and booleans.
// ok is false for every other type.
func PrimitiveString(v any) (string, bool) {
	switch p := v.(type) {
	case string:
		return p, true
	case bool:
		return fmt.Sprint(p), true
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(p), true
	default:
		return "", false
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos]
		}
		i++
	}
	return s
}
