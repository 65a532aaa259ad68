package normalize

import (
	"encoding/json"
	"testing"

	"horeca/internal/core"
)

func TestResolve_FirstMatchWins(t *testing.T) {
	paths := []string{"a.b", "c"}

	got := Resolve(core.Payload{"c": 5}, paths, nil)
	if got != 5 {
		t.Fatalf("expected fallback path value 5, got %v", got)
	}

	got = Resolve(core.Payload{"a": map[string]any{"b": 7}, "c": 5}, paths, nil)
	if got != 7 {
		t.Fatalf("expected first path value 7, got %v", got)
	}
}

func TestResolve_SkipsNil(t *testing.T) {
	p := core.Payload{"a": nil, "b": "x"}
	if got := Resolve(p, []string{"a", "b"}, nil); got != "x" {
		t.Fatalf("expected nil value to be skipped, got %v", got)
	}
}

func TestResolve_Default(t *testing.T) {
	tests := []struct {
		name    string
		payload core.Payload
		paths   []string
	}{
		{"nil payload", nil, []string{"a"}},
		{"missing key", core.Payload{"x": 1}, []string{"a"}},
		{"path through scalar", core.Payload{"a": 3}, []string{"a.b"}},
		{"empty path", core.Payload{"a": 3}, []string{""}},
		{"no paths", core.Payload{"a": 3}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.payload, tt.paths, 0); got != 0 {
				t.Errorf("Resolve() = %v, want default 0", got)
			}
		})
	}
}

func TestResolve_UnwrapOrder(t *testing.T) {
	tests := []struct {
		name string
		obj  map[string]any
		want any
	}{
		{"name first", map[string]any{"label": "L", "id": 3, "name": "N"}, "N"},
		{"id before value", map[string]any{"value": "V", "id": 3}, 3},
		{"value before label", map[string]any{"label": "L", "value": "V"}, "V"},
		{"label last", map[string]any{"label": "L", "other": 1}, "L"},
		{"nil name skipped", map[string]any{"name": nil, "id": 9}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(core.Payload{"team": tt.obj}, []string{"team"}, nil)
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_RawObjectWhenNoUnwrapKey(t *testing.T) {
	obj := map[string]any{"x": 1}
	got := Resolve(core.Payload{"team": obj}, []string{"team"}, nil)
	m, ok := got.(map[string]any)
	if !ok || m["x"] != 1 {
		t.Fatalf("expected raw object, got %#v", got)
	}
	if s := String(core.Payload{"team": obj}, []string{"team"}, ""); s != `{"x":1}` {
		t.Fatalf("expected JSON rendering, got %q", s)
	}
}

func TestResolve_NestedPayloadType(t *testing.T) {
	p := core.Payload{"shift": core.Payload{"start": "08:00"}}
	if got := String(p, StartPaths, ""); got != "08:00" {
		t.Fatalf("expected nested core.Payload to be walked, got %q", got)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{"float64", 7.5, 7.5, true},
		{"int", 8, 8, true},
		{"json number", json.Number("6.25"), 6.25, true},
		{"numeric string", " 4.5 ", 4.5, true},
		{"decimal comma", "4,5", 4.5, true},
		{"decimal comma keeps precision", "7,333", 7.333, true},
		{"thousands dot and decimal comma", "1.234,5", 1234.5, true},
		{"accounting negative", "(12,50)", -12.5, true},
		{"text", "abc", 0, false},
		{"empty string", "", 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float(core.Payload{"v": tt.value}, []string{"v"})
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Float() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFloatOrAndInt(t *testing.T) {
	p := core.Payload{"n": "12.9"}
	if got := FloatOr(p, []string{"missing"}, 3); got != 3 {
		t.Fatalf("FloatOr default = %v", got)
	}
	if got := Int(p, []string{"n"}, 0); got != 12 {
		t.Fatalf("Int = %d, want 12", got)
	}
	if got := Int(p, []string{"missing"}, -1); got != -1 {
		t.Fatalf("Int default = %d", got)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{" a ", "a"},
		{float64(10), "10"},
		{3.25, "3.25"},
		{json.Number("42"), "42"},
		{int64(7), "7"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
