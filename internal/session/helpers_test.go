package session

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/cyberdrill/internal/protocol"
)

const pollDeadline = 3 * time.Second

type recordingHandler struct {
	commands []string
	states   []protocol.Snapshot
	logs     []string
	notices  []string
	panicOn  string
}

func (h *recordingHandler) OnCommand(text string) {
	if h.panicOn != "" && text == h.panicOn {
		panic("command exploded")
	}
	h.commands = append(h.commands, text)
}

func (h *recordingHandler) OnState(snap protocol.Snapshot) { h.states = append(h.states, snap) }
func (h *recordingHandler) OnLog(text string)              { h.logs = append(h.logs, text) }
func (h *recordingHandler) OnNotice(text string)           { h.notices = append(h.notices, text) }

func (h *recordingHandler) hasNotice(prefix string) bool {
	for _, n := range h.notices {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

// pollUntil drives every manager until cond holds or the deadline passes.
func pollUntil(t *testing.T, what string, cond func() bool, managers ...*Manager) {
	t.Helper()
	deadline := time.Now().Add(pollDeadline)
	for time.Now().Before(deadline) {
		for _, m := range managers {
			m.Poll()
		}
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func loopbackPort(t *testing.T, m *Manager) int {
	t.Helper()
	_, raw, err := net.SplitHostPort(m.Addr())
	if err != nil {
		t.Fatalf("split host addr %q: %v", m.Addr(), err)
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		t.Fatalf("parse port %q: %v", raw, err)
	}
	return port
}

func startHost(t *testing.T, cfg Config, h Handler, code string) *Manager {
	t.Helper()
	cfg.ListenHost = "127.0.0.1"
	m := NewManager(cfg, h)
	if _, err := m.StartHost(0, code); err != nil {
		t.Fatalf("start host: %v", err)
	}
	t.Cleanup(m.Leave)
	return m
}

// lineReader collects newline frames written to the far side of a conn.
type lineReader struct {
	lines chan string
	done  chan struct{}
}

func startLineReader(conn net.Conn) *lineReader {
	lr := &lineReader{lines: make(chan string, 64), done: make(chan struct{})}
	go func() {
		defer close(lr.done)
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			lr.lines <- sc.Text()
		}
	}()
	return lr
}

func (lr *lineReader) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-lr.lines:
		return line
	case <-time.After(pollDeadline):
		t.Fatalf("timed out waiting for frame")
		return ""
	}
}

func (lr *lineReader) closed() bool {
	select {
	case <-lr.done:
		return true
	default:
		return false
	}
}

var errInjectedWrite = errors.New("injected write failure")

// failingConn accepts reads from the wrapped conn but fails every write.
type failingConn struct {
	net.Conn
}

func (c failingConn) Write([]byte) (int, error) {
	return 0, errInjectedWrite
}
