package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v want %v", input, got, want)
		}
	}
}

func TestWithCaller(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), captureLogger(&buf, slog.LevelInfo))
	ctx = WithCaller(ctx, 42)

	if got := CallerIDFromContext(ctx); got != 42 {
		t.Fatalf("expected caller 42 got %d", got)
	}

	FromContext(ctx).Info("hello")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["caller_id"] != float64(42) {
		t.Fatalf("expected caller_id on log entry got %v", entry)
	}

	if got := CallerIDFromContext(WithCaller(context.Background(), 0)); got != 0 {
		t.Fatalf("expected anonymous caller got %d", got)
	}
}

func TestSpanLevels(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), captureLogger(&buf, slog.LevelInfo))

	_, span := StartSpan(ctx, "quiet")
	span.End()
	if buf.Len() != 0 {
		t.Fatalf("expected debug span to be filtered at info level, got %s", buf.String())
	}

	spanCtx, span := StartSpan(ctx, "loud")
	span.Verbose(true).End("count", 3)
	if TraceIDFromContext(spanCtx) == "" || SpanIDFromContext(spanCtx) == "" {
		t.Fatal("expected trace and span ids on the derived context")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["span_name"] != "loud" || entry["count"] != float64(3) {
		t.Fatalf("unexpected span entry %v", entry)
	}
}
