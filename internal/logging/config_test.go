package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q)=%v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("unknown level should not override")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level should not override")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "not-a-bool")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("timestamp override not applied")
	}
	if cfg.NoColor {
		t.Fatalf("invalid bool should leave default")
	}
}

func TestNewWritesWithoutTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.InfoLevel, NoColor: true, Out: &buf})
	logger.Debug().Msg("hidden")
	logger.Info().Str("addr", "127.0.0.1:9000").Msg("connected")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "connected") || !strings.Contains(out, "addr=127.0.0.1:9000") {
		t.Fatalf("unexpected log output: %q", out)
	}
	if strings.Contains(out, "<nil>") {
		t.Fatalf("timestamp part should be excluded: %q", out)
	}
}
