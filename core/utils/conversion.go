package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToString converts various types to string. nil becomes "".
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any:
		// schema.org values often arrive as {"@type": ..., "name": ...}
		for _, key := range []string{"name", "url", "@id", "text"} {
			if s := ToString(v[key]); s != "" {
				return s
			}
		}
		return ""
	case []any:
		if len(v) == 0 {
			return ""
		}
		return ToString(v[0])
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numbers (non-zero is true), and strings ("1", "true", "yes").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "yes"
	case []byte:
		return ToBool(string(v))
	default:
		return false
	}
}

// ToStringSlice converts a list or a comma separated string to trimmed, non-empty strings.
func ToStringSlice(val any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	switch v := val.(type) {
	case nil:
	case []string:
		for _, s := range v {
			add(s)
		}
	case []any:
		for _, item := range v {
			add(ToString(item))
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	default:
		add(ToString(v))
	}
	return out
}

// Lookup walks nested maps by key and returns the value at the end of path.
func Lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// FirstString returns the first non-empty string among the given keys of m.
func FirstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(ToString(m[key])); s != "" {
			return s
		}
	}
	return ""
}
