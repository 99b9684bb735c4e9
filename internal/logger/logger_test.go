package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf, "info")

	log.Info().Str("component", "settle").Msg("sale committed")

	output := buf.String()
	if !strings.Contains(output, "sale committed") {
		t.Errorf("expected output to contain message, got: %s", output)
	}
	if !strings.Contains(output, "settle") {
		t.Errorf("expected output to contain field value, got: %s", output)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf, "warn")

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	output := buf.String()
	if strings.Contains(output, "dropped") {
		t.Errorf("info line should be filtered at warn level: %s", output)
	}
	if !strings.Contains(output, "kept") {
		t.Errorf("warn line missing: %s", output)
	}
}

func TestParseLevelFallback(t *testing.T) {
	if got := parseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", got)
	}
	if got := parseLevel("debug"); got != zerolog.DebugLevel {
		t.Errorf("expected debug, got %v", got)
	}
}
