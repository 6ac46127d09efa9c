package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"tubesync/internal/logging"
	"tubesync/internal/services"
)

func TestConsoleHandlerFormatsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logging.NewComponentLogger(logger, "push").Info("connected", logging.String("addr", "localhost:8860"))

	line := buf.String()
	if !strings.Contains(line, " INFO push: connected") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "addr=localhost:8860") {
		t.Fatalf("expected addr attribute in %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("visible")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be suppressed at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	ctx := services.WithVideoID(context.Background(), "vid-1")
	ctx = services.WithRequestID(ctx, "req-9")
	logging.WithContext(ctx, logger).Debug("polling")

	line := buf.String()
	if !strings.Contains(line, "video_id=vid-1") || !strings.Contains(line, "request_id=req-9") {
		t.Fatalf("expected context fields in %q", line)
	}
}
