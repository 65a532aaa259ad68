// Package normalize extracts canonical values from semi-structured payloads.
//
// Every "try field A, else field B" lookup in the pipeline goes through
// Resolve with an ordered candidate list, so each extraction site can be
// audited against the lists in fields.go.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"horeca/internal/core"
)

// unwrapKeys are tried in order when a path ends on a nested object.
var unwrapKeys = []string{"name", "id", "value", "label"}

// Resolve walks each dotted path through nested maps and returns the first
// non-nil terminal value. A terminal object is unwrapped through its name,
// id, value or label property; an object with none of those is returned as
// is. When no path resolves, def is returned.
func Resolve(p core.Payload, paths []string, def any) any {
	if p == nil {
		return def
	}
	for _, path := range paths {
		v, ok := walk(map[string]any(p), path)
		if !ok || v == nil {
			continue
		}
		return unwrap(v)
	}
	return def
}

func walk(m map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		obj, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func unwrap(v any) any {
	obj, ok := asMap(v)
	if !ok {
		return v
	}
	for _, k := range unwrapKeys {
		if inner, ok := obj[k]; ok && inner != nil {
			return inner
		}
	}
	return v
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case core.Payload:
		return map[string]any(m), true
	}
	return nil, false
}

// String resolves paths and renders the value as a trimmed string.
func String(p core.Payload, paths []string, def string) string {
	v := Resolve(p, paths, nil)
	if v == nil {
		return def
	}
	return Stringify(v)
}

// Stringify renders a resolved value. Numbers are rendered without
// exponent or trailing zeros; objects are rendered as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, core.Payload, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

// Float resolves paths and converts the value to a float64. The second
// return value is false when nothing resolved or the value is not numeric.
func Float(p core.Payload, paths []string) (float64, bool) {
	v := Resolve(p, paths, nil)
	if v == nil {
		return 0, false
	}
	return toFloat(v)
}

// FloatOr is Float with a default for absent or non-numeric values.
func FloatOr(p core.Payload, paths []string, def float64) float64 {
	if f, ok := Float(p, paths); ok {
		return f
	}
	return def
}

// Int resolves paths and converts the value to an int, truncating decimals.
func Int(p core.Payload, paths []string, def int) int {
	f, ok := Float(p, paths)
	if !ok {
		return def
	}
	return int(f)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, !math.IsNaN(f) && !math.IsInf(f, 0)
		}
		if f, err := strconv.ParseFloat(core.NormalizeSeparators(strings.ReplaceAll(s, " ", "")), 64); err == nil {
			return f, !math.IsNaN(f) && !math.IsInf(f, 0)
		}
		// Accounting forms such as "(12,50)" or "€ 4,00" keep cent precision.
		cents, err := core.ParseSignedDecimalToCents(s)
		if err != nil {
			return 0, false
		}
		return float64(cents) / 100, true
	case bool:
		return 0, false
	}
	return 0, false
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
