package common

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerDefaultIsSilent(t *testing.T) {
	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("default logger should not be enabled at any level")
	}
}

func TestSetLoggerRoutesOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	Logger().Warn("peel sequence aborted", "layer", 2)
	if !strings.Contains(buf.String(), "peel sequence aborted") || !strings.Contains(buf.String(), "layer=2") {
		t.Errorf("unexpected log output: %q", buf.String())
	}
}
