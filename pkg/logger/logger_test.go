package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsAreAttached(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithSessionID(ctx, "sess-1")
	logg.Info(ctx, "cart.updated")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["request_id"] != "req-1" || entry["session_id"] != "sess-1" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if entry["service"] != "api" || entry["message"] != "cart.updated" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "order.persist_failed", errors.New("db down"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["error"] != "db down" {
		t.Fatalf("expected error field, got %v", entry)
	}
	if _, ok := entry["stack"]; !ok {
		t.Fatal("expected stack on error entries")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != zerolog.DebugLevel {
		t.Fatal("expected debug level")
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("expected fallback to info")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("expected empty value to map to info")
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Level: zerolog.InfoLevel, Output: &buf})
	logg.Debug(context.Background(), "catalog.cache_hit")
	if buf.Len() != 0 {
		t.Fatalf("debug entry should be filtered, got %q", buf.String())
	}
}

func TestParseLevelAliases(t *testing.T) {
	if ParseLevel("warning") != zerolog.WarnLevel {
		t.Fatal("expected warning alias to map to warn")
	}
	if ParseLevel(" Error ") != zerolog.ErrorLevel {
		t.Fatal("expected trimmed, case-insensitive parsing")
	}
}

func TestWithFieldsMergesIntoContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf, Format: FormatJSON})

	ctx := logg.WithFields(context.Background(), map[string]any{"line_id": "rose-oil", "quantity": 2})
	ctx = logg.WithOrderNumber(ctx, "HM-K3Z9QX")
	logg.Warn(ctx, "cart.quantity_clamped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["line_id"] != "rose-oil" || entry["quantity"] != float64(2) || entry["order_number"] != "HM-K3Z9QX" {
		t.Fatalf("missing merged fields: %v", entry)
	}
	if _, ok := entry["stack"]; ok {
		t.Fatal("warn entries carry no stack unless WarnStack is set")
	}
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf, Format: FormatConsole})
	logg.Info(context.Background(), "catalog.cache_miss")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err == nil {
		t.Fatalf("console output should not be JSON: %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("catalog.cache_miss")) {
		t.Fatalf("message missing from console output: %q", buf.String())
	}
}
