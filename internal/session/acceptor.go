package session

import (
	"errors"
	"net"
	"sync"
	"time"

	logs "github.com/danmuck/smplog"
)

const acceptRetryDelay = 50 * time.Millisecond

// acceptor runs the blocking accept loop and hands connections to the
// polling goroutine through a bounded queue.
type acceptor struct {
	ln    net.Listener
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func newAcceptor(ln net.Listener, backlog int) *acceptor {
	a := &acceptor{
		ln:    ln,
		conns: make(chan net.Conn, backlog),
		done:  make(chan struct{}),
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *acceptor) addr() string {
	return a.ln.Addr().String()
}

func (a *acceptor) loop() {
	defer a.wg.Done()
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			select {
			case <-a.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				logs.Warnf("session.accept listener closed addr=%q", a.addr())
				return
			}
			logs.Warnf("session.accept err=%v", err)
			select {
			case <-a.done:
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		select {
		case a.conns <- conn:
		case <-a.done:
			_ = conn.Close()
			return
		}
	}
}

// drain returns every connection accepted since the last call.
func (a *acceptor) drain() []net.Conn {
	var out []net.Conn
	for {
		select {
		case conn := <-a.conns:
			out = append(out, conn)
		default:
			return out
		}
	}
}

func (a *acceptor) close() {
	a.once.Do(func() {
		close(a.done)
		_ = a.ln.Close()
		a.wg.Wait()
		for _, conn := range a.drain() {
			_ = conn.Close()
		}
	})
}
