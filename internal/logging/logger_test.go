package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"librasflow/internal/logging"
	"librasflow/internal/services"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("hello", logging.String("k", "v"))
	out := buf.String()
	if !strings.Contains(out, `"k":"v"`) || !strings.Contains(out, "hello") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info record should be suppressed: %s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Fatalf("warn record missing: %s", out)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := services.WithProjectID(context.Background(), "proj-7")
	ctx = services.WithStage(ctx, "export")
	logging.WithContext(ctx, logger).Info("work")
	out := buf.String()
	if !strings.Contains(out, "proj-7") || !strings.Contains(out, "export") {
		t.Fatalf("context fields missing: %s", out)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
}
