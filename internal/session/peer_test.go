package session

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/danmuck/cyberdrill/internal/protocol/frame"
	"github.com/danmuck/cyberdrill/internal/testutil/testlog"
)

func drainUntil(t *testing.T, p *PeerConnection, want int) ([][]byte, error) {
	t.Helper()
	var got [][]byte
	deadline := time.Now().Add(pollDeadline)
	for time.Now().Before(deadline) {
		frames, err := p.Drain()
		got = append(got, frames...)
		if err != nil || len(got) >= want {
			return got, err
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out draining: got %d frames want %d", len(got), want)
	return nil, nil
}

func TestPeerConnectionDrainReassemblesSplitWrites(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	p := NewPeerConnection(local, DefaultConfig())
	defer p.Close()

	go func() {
		for i := 0; i < 5; i++ {
			line := fmt.Sprintf("{\"t\":\"log\",\"s\":\"%d\"}\n", i)
			mid := len(line) / 2
			_, _ = remote.Write([]byte(line[:mid]))
			_, _ = remote.Write([]byte(line[mid:]))
		}
	}()

	frames, err := drainUntil(t, p, 5)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	for i, f := range frames {
		want := fmt.Sprintf("{\"t\":\"log\",\"s\":\"%d\"}", i)
		if string(f) != want {
			t.Fatalf("frame %d: got %q want %q", i, f, want)
		}
	}
}

func TestPeerConnectionSendWritesFrame(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	p := NewPeerConnection(local, DefaultConfig())
	defer p.Close()
	lr := startLineReader(remote)

	if err := p.Send([]byte("{\"t\":\"ok\"}\n")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := lr.next(t); got != `{"t":"ok"}` {
		t.Fatalf("unexpected frame: %q", got)
	}
}

func TestPeerConnectionRemoteCloseIsPeerClosed(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	p := NewPeerConnection(local, DefaultConfig())
	defer p.Close()

	_ = remote.Close()
	_, err := drainUntil(t, p, 1)
	if !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}
	if _, err := p.Drain(); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("terminal error must be sticky, got %v", err)
	}
}

func TestPeerConnectionCloseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	defer remote.Close()
	p := NewPeerConnection(local, DefaultConfig())

	if err := p.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := p.Send([]byte("x\n")); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("send after close: expected ErrPeerClosed, got %v", err)
	}
	if _, err := p.Drain(); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("drain after close: expected ErrPeerClosed, got %v", err)
	}
}

func TestPeerConnectionWriteFailureSurfacesOnDrain(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	defer remote.Close()
	p := NewPeerConnection(failingConn{Conn: local}, DefaultConfig())
	defer p.Close()

	if err := p.Send([]byte("{\"t\":\"ok\"}\n")); err != nil {
		t.Fatalf("first send should queue: %v", err)
	}
	_, err := drainUntil(t, p, 1)
	if !errors.Is(err, ErrWriteFailed) || !errors.Is(err, errInjectedWrite) {
		t.Fatalf("expected wrapped write failure, got %v", err)
	}
	if err := p.Send([]byte("x\n")); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("send after write failure: got %v", err)
	}
}

func TestPeerConnectionOutboxFull(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	defer remote.Close()
	cfg := DefaultConfig()
	cfg.OutboxDepth = 1
	cfg.WriteTimeout = time.Minute
	p := NewPeerConnection(local, cfg)
	defer p.Close()

	var full bool
	for i := 0; i < 3; i++ {
		if err := p.Send([]byte("x\n")); errors.Is(err, ErrOutboxFull) {
			full = true
			break
		} else if err != nil {
			t.Fatalf("unexpected send error: %v", err)
		}
	}
	if !full {
		t.Fatalf("expected ErrOutboxFull with nobody reading")
	}
}

func TestPeerConnectionOversizedFrame(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	defer remote.Close()
	cfg := DefaultConfig()
	cfg.Limits = frame.Limits{MaxFrameBytes: 16}
	p := NewPeerConnection(local, cfg)
	defer p.Close()

	go func() { _, _ = remote.Write([]byte("{\"t\":\"ok\"}\n0123456789abcdefghij")) }()

	frames, err := drainUntil(t, p, 2)
	if !errors.Is(err, frame.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("complete frame before the oversized tail must survive: %q", frames)
	}
}
