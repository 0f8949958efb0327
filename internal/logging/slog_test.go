package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func newBufLogger() (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), buf
}

func TestSlogLogger_EmitsJSON(t *testing.T) {
	t.Parallel()

	log, buf := newBufLogger()
	log.Info(context.Background(), "hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestSlogLogger_WithAddsFields(t *testing.T) {
	t.Parallel()

	log, buf := newBufLogger()
	child := log.With("module", "tokens")
	child.Warn(context.Background(), "reuse detected")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["module"] != "tokens" {
		t.Fatalf("expected module field, got %v", rec)
	}
}
