package drill

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/cyberdrill/internal/testutil/testlog"
)

type syncTranscript struct {
	mu    sync.Mutex
	lines []string
}

func (s *syncTranscript) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func (s *syncTranscript) has(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServiceSoloRunsInputUntilClosed(t *testing.T) {
	testlog.Start(t)
	out := &syncTranscript{}
	cfg := DefaultServiceConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.TickInterval = time.Hour
	svc := NewService(cfg, out)

	input := make(chan string, 2)
	input <- "status"
	close(input)

	if err := svc.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.has("[SYS] Mission A3") {
		t.Fatalf("missing intro lines: %q", out.lines)
	}
	if !out.has("> status") || !out.has("[SYS] Step 1/4") {
		t.Fatalf("status was not executed: %q", out.lines)
	}
	if svc.Status().Role != "none" {
		t.Fatalf("unexpected role after run: %+v", svc.Status())
	}
}

func TestServiceHostTicksClockAndLeavesOnCancel(t *testing.T) {
	testlog.Start(t)
	out := &syncTranscript{}
	cfg := DefaultServiceConfig()
	cfg.Mode = ModeHost
	cfg.Port = 0
	cfg.Code = "42"
	cfg.Session.ListenHost = "127.0.0.1"
	cfg.PollInterval = 5 * time.Millisecond
	cfg.TickInterval = 10 * time.Millisecond
	cfg.TimeLimit = 3
	svc := NewService(cfg, out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, make(chan string)) }()

	waitFor(t, "host role", func() bool { return svc.Status().Role == "host" && svc.Status().Code })
	waitFor(t, "clock expiry", func() bool { return out.has("[SYS] Time is up.") })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("service did not stop")
	}
	if !out.has("[NET] host listening on 127.0.0.1:") || !out.has("[NET] disconnected") {
		t.Fatalf("unexpected session transcript: %q", out.lines)
	}
	if svc.Status().Role != "none" {
		t.Fatalf("service did not leave the session: %+v", svc.Status())
	}
}

func TestServiceConfigValidate(t *testing.T) {
	cfg := DefaultServiceConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.PollInterval = 0
	if err := bad.Validate(); !errors.Is(err, ErrInvalidPollInterval) {
		t.Fatalf("expected ErrInvalidPollInterval, got %v", err)
	}
	bad = cfg
	bad.TickInterval = -time.Second
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTickInterval) {
		t.Fatalf("expected ErrInvalidTickInterval, got %v", err)
	}
	bad = cfg
	bad.Mode = "spectate"
	if err := NewService(bad, nil).Run(context.Background(), nil); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
