package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/cyberdrill/internal/drill"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drill.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Service.Port != 50555 || cfg.Service.Mode != drill.ModeSolo {
		t.Fatalf("unexpected defaults: %+v", cfg.Service)
	}
	if cfg.Service.Session.ConnectTimeout != 3*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Service.Session.ConnectTimeout)
	}
}

func TestLoadTemplateOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drill.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected existing template to be kept")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	svc := cfg.Service
	if svc.Mode != drill.ModeHost || svc.Code != "42" || svc.HostAddr != "192.168.0.10" {
		t.Fatalf("unexpected session fields: %+v", svc)
	}
	if svc.PollInterval != 100*time.Millisecond || svc.TickInterval != time.Second {
		t.Fatalf("unexpected intervals: poll=%v tick=%v", svc.PollInterval, svc.TickInterval)
	}
	if svc.Session.WriteTimeout != 2*time.Second || svc.Session.Limits.MaxFrameBytes != 1048576 {
		t.Fatalf("unexpected session config: %+v", svc.Session)
	}
	if svc.MetricsAddr != "127.0.0.1:9105" || cfg.LogLevel != "info" || svc.TimeLimit != 200 {
		t.Fatalf("unexpected ambient fields: %+v log=%q", svc, cfg.LogLevel)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "code = \" 7 \"\nfixed_code = true\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Service.Code != "7" || !cfg.Service.Session.FixedCode {
		t.Fatalf("unexpected overrides: %+v", cfg.Service)
	}
	if cfg.Service.Port != 50555 || cfg.Service.PollInterval != 100*time.Millisecond {
		t.Fatalf("defaults lost: %+v", cfg.Service)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad duration": "poll_interval = \"soon\"\n",
		"zero tick":    "tick_interval = \"0s\"\n",
		"bad port":     "port = 70000\n",
		"bad mode":     "mode = \"spectate\"\n",
		"unknown key":  "colour = \"red\"\n",
		"not toml":     "port = = 1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	_, err := Load(writeConfig(t, "max_frame_bytes = -1\n"))
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}
