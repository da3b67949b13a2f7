package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/cyberdrill/internal/protocol/frame"
	"github.com/google/uuid"
)

type readResult struct {
	chunk []byte
	err   error
}

// PeerConnection is one live stream with its own frame buffer. A reader
// goroutine feeds raw chunks into a bounded queue and a writer goroutine
// drains a bounded outbox; Drain and Send never block the caller.
type PeerConnection struct {
	id           string
	conn         net.Conn
	remote       string
	writeTimeout time.Duration
	splitter     *frame.Splitter

	inbound   chan readResult
	outbox    chan []byte
	done      chan struct{}
	writeDead chan struct{}
	closeOnce sync.Once
	writeOnce sync.Once
	writeErr  error

	// terminal is the sticky error returned once the stream has ended.
	terminal error
}

func NewPeerConnection(conn net.Conn, cfg Config) *PeerConnection {
	cfg = cfg.WithDefaults()
	p := &PeerConnection{
		id:           uuid.NewString(),
		conn:         conn,
		remote:       remoteString(conn),
		writeTimeout: cfg.WriteTimeout,
		splitter:     frame.NewSplitter(cfg.Limits),
		inbound:      make(chan readResult, cfg.InboundDepth),
		outbox:       make(chan []byte, cfg.OutboxDepth),
		done:         make(chan struct{}),
		writeDead:    make(chan struct{}),
	}
	go p.readLoop(cfg.ReadChunkBytes)
	go p.writeLoop()
	return p
}

func (p *PeerConnection) ID() string         { return p.id }
func (p *PeerConnection) RemoteAddr() string { return p.remote }

// Drain moves every queued chunk through the frame buffer and returns the
// completed frames in receipt order. A non-nil error means the connection is
// finished; frames returned with it were received before it ended.
func (p *PeerConnection) Drain() ([][]byte, error) {
	if p.terminal != nil {
		return nil, p.terminal
	}
	var frames [][]byte
	for {
		select {
		case <-p.done:
			p.terminal = ErrPeerClosed
			return frames, p.terminal
		case <-p.writeDead:
			p.terminal = fmt.Errorf("%w: %s: %w", ErrWriteFailed, p.remote, p.writeErr)
			return frames, p.terminal
		case res := <-p.inbound:
			if res.err != nil {
				p.terminal = p.classifyRead(res.err)
				return frames, p.terminal
			}
			out, err := p.splitter.Append(res.chunk)
			frames = append(frames, out...)
			if err != nil {
				p.terminal = fmt.Errorf("%w: %s", err, p.remote)
				return frames, p.terminal
			}
		default:
			return frames, nil
		}
	}
}

// Send queues one encoded frame for the writer goroutine.
func (p *PeerConnection) Send(b []byte) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	case <-p.writeDead:
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, p.remote, p.writeErr)
	default:
	}
	select {
	case p.outbox <- b:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrOutboxFull, p.remote)
	}
}

// Close tears down the socket. Repeated calls are no-ops.
func (p *PeerConnection) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.splitter.Reset()
		if cerr := p.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	})
	return err
}

func (p *PeerConnection) readLoop(chunkBytes int) {
	for {
		buf := make([]byte, chunkBytes)
		n, err := p.conn.Read(buf)
		if n > 0 {
			select {
			case p.inbound <- readResult{chunk: buf[:n]}:
			case <-p.done:
				return
			}
		}
		if err != nil {
			select {
			case p.inbound <- readResult{err: err}:
			case <-p.done:
			}
			return
		}
	}
}

func (p *PeerConnection) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case b := <-p.outbox:
			if p.writeTimeout > 0 {
				_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			}
			if _, err := p.conn.Write(b); err != nil {
				p.writeOnce.Do(func() {
					p.writeErr = err
					close(p.writeDead)
				})
				return
			}
		}
	}
}

func (p *PeerConnection) classifyRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return ErrPeerClosed
	}
	return fmt.Errorf("session: read %s: %w", p.remote, err)
}

func remoteString(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
