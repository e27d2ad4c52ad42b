package lgr

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mdobak/go-xerrors"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "", slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("camera started", slog.String("facingMode", "user"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %q", out)
	}
	if !strings.Contains(out, "camera started") || !strings.Contains(out, "user") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestErrorAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "", slog.LevelDebug)

	logger.Error("plain", slog.Any("error", errors.New("boom")))
	logger.Error("traced", slog.Any("error", xerrors.New("bang")))

	out := buf.String()
	if !strings.Contains(out, "boom") {
		t.Errorf("plain error message missing: %q", out)
	}
	if !strings.Contains(out, "bang") {
		t.Errorf("traced error message missing: %q", out)
	}
}

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := levelFromEnv(in); got != want {
			t.Errorf("levelFromEnv(%q) = %v, want %v", in, got, want)
		}
	}
}
