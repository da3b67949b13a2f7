package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/cyberdrill/internal/config"
	"github.com/danmuck/cyberdrill/internal/drill"
	"github.com/pterm/pterm"
)

func TestResolveAppliesChangedFlagsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drill.toml")
	if err := os.WriteFile(path, []byte("difficulty = \"easy\"\nmetrics_addr = \"127.0.0.1:9000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := rootCmd()
	host, _, err := root.Find([]string{"host"})
	if err != nil {
		t.Fatalf("find host: %v", err)
	}
	if err := host.ParseFlags([]string{"--config", path, "--difficulty", "hard"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	g := &globalFlags{configPath: path, difficulty: "hard"}

	cfg, err := resolve(host, g, drill.ModeHost)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Service.Mode != drill.ModeHost {
		t.Fatalf("unexpected mode: %q", cfg.Service.Mode)
	}
	if cfg.Service.Difficulty != "hard" {
		t.Fatalf("flag should override file difficulty, got %q", cfg.Service.Difficulty)
	}
	if cfg.Service.MetricsAddr != "127.0.0.1:9000" {
		t.Fatalf("file value should survive unset flag, got %q", cfg.Service.MetricsAddr)
	}
}

func TestConfigCommandPrintsTemplate(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.String() != config.Template() {
		t.Fatalf("unexpected template output:\n%s", out.String())
	}
}

func TestPrinterWritesEveryLine(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var out bytes.Buffer
	p := newPrinter(&out)
	p.Append("[NET] host listening on :50555 (code=42)")
	p.Append("> scan")
	got := out.String()
	if !strings.Contains(got, "[NET] host listening on :50555 (code=42)\n") || !strings.Contains(got, "> scan\n") {
		t.Fatalf("unexpected printer output: %q", got)
	}
}

func TestReadLinesClosesOnEOF(t *testing.T) {
	lines := readLines(context.Background(), strings.NewReader("status\nscan\n"))
	var got []string
	timeout := time.After(time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if len(got) != 2 || got[0] != "status" || got[1] != "scan" {
					t.Fatalf("unexpected lines: %q", got)
				}
				return
			}
			got = append(got, line)
		case <-timeout:
			t.Fatalf("reader did not close")
		}
	}
}
