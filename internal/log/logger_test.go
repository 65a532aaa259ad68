package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Config{
		Component: ComponentPnL,
		Handler:   slog.NewJSONHandler(&buf, nil),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()

	logger.With(FieldRunID, "r1").InfoContext(context.Background(), "Rollup done", FieldYear, 2024)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["component"] != "pnl" || rec["run_id"] != "r1" || rec["year"] != float64(2024) {
		t.Errorf("record = %v", rec)
	}
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "horeca.log")
	logger, closer, err := New(Config{Level: slog.LevelInfo, Component: ComponentApp, File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.DebugContext(context.Background(), "hidden")
	logger.WarnContext(context.Background(), "visible", FieldError, errors.New("x").Error())
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"visible"`) || strings.Contains(string(data), "hidden") {
		t.Errorf("log file = %s", data)
	}
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background(), ComponentWorker)
	if fallback.Component() != ComponentWorker {
		t.Errorf("fallback component = %q", fallback.Component())
	}
	logger, _, _ := New(Config{Component: ComponentAMQP, Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	ctx := WithContext(context.Background(), logger)
	if FromContext(ctx, ComponentWorker) != logger {
		t.Error("expected the stored logger")
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().WithRunID("r").WithPeriod("L1", 2024, 3).WithRange("a", "b", "", "").WithError(nil)
	if f[FieldRunID] != "r" || f[FieldMonth] != 3 || f[FieldFrom] != "a" {
		t.Errorf("fields = %v", f)
	}
	if _, ok := f[FieldTeam]; ok {
		t.Error("empty team should be omitted")
	}
	if _, ok := f[FieldError]; ok {
		t.Error("nil error should be omitted")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length = %d", len(f.ToSlice()))
	}
}
