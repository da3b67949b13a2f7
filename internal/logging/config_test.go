package logging

import (
	"os"
	"testing"

	logs "github.com/danmuck/smplog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logs.Level{
		"debug":   logs.DebugLevel,
		" INFO ":  logs.InfoLevel,
		"warning": logs.WarnLevel,
		"error":   logs.ErrorLevel,
		"off":     logs.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) got=%v ok=%v want=%v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("expected empty level to be ignored")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogBypass, "true")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != logs.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.NoColor || !cfg.Bypass {
		t.Fatalf("expected no color and bypass, got %+v", cfg)
	}
}

func TestTestProfileDefaults(t *testing.T) {
	cfg := defaultConfig(ProfileTest)
	if cfg.Level != logs.DebugLevel || cfg.Timestamp {
		t.Fatalf("unexpected test profile level=%v timestamp=%v", cfg.Level, cfg.Timestamp)
	}
	if cfg.Writer != os.Stderr {
		t.Fatalf("logs must not share stdout with the transcript")
	}
}

func TestSetLevelUpdatesLogger(t *testing.T) {
	before := logs.Configured().Level
	t.Cleanup(func() { logs.SetLevel(before) })

	if !SetLevel("warn") {
		t.Fatalf("expected warn to be accepted")
	}
	if got := logs.Configured().Level; got != logs.WarnLevel {
		t.Fatalf("level not applied: %v", got)
	}
	if SetLevel("loud") {
		t.Fatalf("expected unknown level to be rejected")
	}
	if got := logs.Configured().Level; got != logs.WarnLevel {
		t.Fatalf("rejected level changed the logger: %v", got)
	}
}
