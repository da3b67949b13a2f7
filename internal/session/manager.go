package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"

	"github.com/danmuck/cyberdrill/internal/auth"
	"github.com/danmuck/cyberdrill/internal/observability"
	"github.com/danmuck/cyberdrill/internal/protocol"
	"github.com/danmuck/cyberdrill/internal/protocol/frame"
	logs "github.com/danmuck/smplog"
)

const (
	hostConfirmFmt   = "host listening on %s (code=%s)"
	clientConfirmFmt = "joined %s"
	noticeDroppedFmt = "disconnected from host: %v"
)

// Manager owns the local role, the listener or upstream connection, and the
// set of host-side peers. It is not safe for concurrent use; every method
// must be called from the goroutine that drives Poll.
type Manager struct {
	cfg    Config
	router *Router

	role     Role
	acceptor *acceptor
	peers    []*PeerConnection
	upstream *PeerConnection
	addr     string

	// epoch increments on every teardown so an in-flight poll can tell that a
	// handler ended the session underneath it.
	epoch uint64
}

func NewManager(cfg Config, h Handler) *Manager {
	cfg = cfg.WithDefaults()
	r := NewRouter(h)
	r.fixedCode = cfg.FixedCode
	return &Manager{cfg: cfg, router: r, role: RoleNone}
}

func (m *Manager) Role() Role     { return m.role }
func (m *Manager) Code() string   { return m.router.Code() }
func (m *Manager) Addr() string   { return m.addr }
func (m *Manager) PeerCount() int { return len(m.peers) }

// StartHost binds a listener on port and begins accepting peers. Port 0
// binds an ephemeral port; Addr reports the bound address.
func (m *Manager) StartHost(port int, code string) (string, error) {
	m.Leave()
	if port < 0 || port > 65535 {
		return "", fmt.Errorf("%w: invalid port %d", ErrBind, port)
	}
	bind := net.JoinHostPort(m.cfg.ListenHost, strconv.Itoa(port))
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		logs.Warnf("session.StartHost bind=%q err=%v", bind, err)
		return "", fmt.Errorf("%w: %s: %w", ErrBind, bind, err)
	}
	m.acceptor = newAcceptor(ln, m.cfg.AcceptBacklog)
	m.addr = m.acceptor.addr()
	m.router.Reset(code)
	m.role = RoleHost
	logs.Infof("session.StartHost listening addr=%q code_set=%t", m.addr, m.router.Code() != "")
	return fmt.Sprintf(hostConfirmFmt, m.addr, auth.Code(m.router.Code()).Label()), nil
}

// StartClient dials a host, sends hello and becomes a client. The dial is
// bounded by Config.ConnectTimeout and ctx.
func (m *Manager) StartClient(ctx context.Context, address string, port int, code string) (string, error) {
	m.Leave()
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("%w: invalid port %d", ErrConnect, port)
	}
	target := net.JoinHostPort(address, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: m.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		logs.Warnf("session.StartClient target=%q err=%v", target, err)
		return "", fmt.Errorf("%w: %s: %w", ErrConnect, target, err)
	}

	peer := NewPeerConnection(conn, m.cfg)
	m.router.Reset(code)
	hello := protocol.Hello{Code: m.router.Code()}
	if err := m.sendTo(peer, RoleClient, hello); err != nil {
		_ = peer.Close()
		m.router.Reset("")
		return "", fmt.Errorf("%w: %s: %w", ErrConnect, target, err)
	}
	m.upstream = peer
	m.addr = peer.RemoteAddr()
	m.role = RoleClient
	observability.SetPeersConnected(1)
	logs.Infof("session.StartClient joined target=%q peer_id=%q", target, peer.ID())
	return fmt.Sprintf(clientConfirmFmt, target), nil
}

// Poll accepts pending connections and routes every complete frame that has
// arrived since the previous call. It never blocks on the network.
func (m *Manager) Poll() {
	switch m.role {
	case RoleHost:
		m.acceptPending()
		epoch := m.epoch
		for _, p := range slices.Clone(m.peers) {
			if m.epoch != epoch {
				return
			}
			if !m.hasPeer(p) {
				continue
			}
			m.pollPeer(p, epoch)
		}
	case RoleClient:
		if m.upstream != nil {
			m.pollUpstream()
		}
	}
}

// Leave closes the listener, every peer and the upstream connection, and
// returns to RoleNone. It is safe to call in any state.
func (m *Manager) Leave() {
	wasActive := m.role != RoleNone
	if m.acceptor != nil {
		m.acceptor.close()
		m.acceptor = nil
	}
	for _, p := range m.peers {
		_ = p.Close()
	}
	m.peers = nil
	if m.upstream != nil {
		_ = m.upstream.Close()
		m.upstream = nil
	}
	m.router.Reset("")
	m.addr = ""
	m.role = RoleNone
	m.epoch++
	if wasActive {
		observability.SetPeersConnected(0)
		logs.Infof("session.Leave done")
	}
}

// RequestSync asks the host for a fresh snapshot.
func (m *Manager) RequestSync() error {
	return m.sendUpstream(protocol.Sync{Code: m.router.Code()})
}

// SendCommand relays one command line to the host.
func (m *Manager) SendCommand(text string) error {
	return m.sendUpstream(protocol.Cmd{Text: text, Code: m.router.Code()})
}

// Broadcast queues msg to every host-side peer and returns how many accepted
// it. A peer that cannot take the frame is dropped without affecting others.
func (m *Manager) Broadcast(msg protocol.Message) int {
	if m.role != RoleHost {
		return 0
	}
	b, err := protocol.Encode(msg)
	if err != nil {
		logs.Errorf(err, "session.Broadcast encode kind=%s", msg.Kind())
		return 0
	}
	kind := string(msg.Kind())
	sent := 0
	for _, p := range slices.Clone(m.peers) {
		if err := p.Send(b); err != nil {
			m.dropPeer(p, err)
			continue
		}
		observability.RecordFrameSent(RoleHost.String(), kind)
		sent++
	}
	return sent
}

// ListPeers reports remote ip:port for each host-side peer in registration
// order, or the host ip when joined as a client.
func (m *Manager) ListPeers() []string {
	switch m.role {
	case RoleHost:
		out := make([]string, 0, len(m.peers))
		for _, p := range m.peers {
			out = append(out, p.RemoteAddr())
		}
		return out
	case RoleClient:
		if m.upstream == nil {
			return nil
		}
		host, _, err := net.SplitHostPort(m.upstream.RemoteAddr())
		if err != nil {
			return []string{m.upstream.RemoteAddr()}
		}
		return []string{host}
	default:
		return nil
	}
}

func (m *Manager) acceptPending() {
	if m.acceptor == nil {
		return
	}
	conns := m.acceptor.drain()
	for _, conn := range conns {
		p := NewPeerConnection(conn, m.cfg)
		m.peers = append(m.peers, p)
		logs.Infof("session.Poll peer connected remote=%q peer_id=%q peers=%d", p.RemoteAddr(), p.ID(), len(m.peers))
	}
	if len(conns) > 0 {
		observability.SetPeersConnected(len(m.peers))
	}
}

func (m *Manager) pollPeer(p *PeerConnection, epoch uint64) {
	frames, err := p.Drain()
	for _, raw := range frames {
		if m.epoch != epoch || !m.hasPeer(p) {
			return
		}
		m.dispatch(p, RoleHost, raw)
	}
	if err != nil && m.epoch == epoch {
		m.dropPeer(p, err)
	}
}

func (m *Manager) pollUpstream() {
	p := m.upstream
	epoch := m.epoch
	frames, err := p.Drain()
	for _, raw := range frames {
		if m.epoch != epoch {
			return
		}
		m.dispatch(p, RoleClient, raw)
	}
	if err != nil && m.epoch == epoch {
		m.dropUpstream(err)
	}
}

func (m *Manager) dispatch(p *PeerConnection, role Role, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		observability.RecordMalformedFrame(role.String())
		logs.Warnf("session.Poll drop frame role=%s remote=%q err=%v", role, p.RemoteAddr(), err)
		return
	}
	kind := string(msg.Kind())
	observability.RecordFrameReceived(role.String(), kind)

	reply, err := m.router.Route(role, msg)
	if err != nil {
		if errors.Is(err, ErrCodeMismatch) {
			observability.RecordCodeRejection(kind)
		}
		logs.Warnf("session.Poll route role=%s remote=%q err=%v", role, p.RemoteAddr(), err)
	}
	if reply == nil || m.role != role {
		return
	}
	if err := m.sendTo(p, role, reply); err != nil {
		if role == RoleHost {
			m.dropPeer(p, err)
		} else {
			m.dropUpstream(err)
		}
	}
}

func (m *Manager) sendUpstream(msg protocol.Message) error {
	if m.role != RoleClient || m.upstream == nil {
		return ErrNotClient
	}
	// An unencodable message is the caller's fault; the link stays up.
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := m.sendFrame(m.upstream, RoleClient, msg.Kind(), b); err != nil {
		m.dropUpstream(err)
		return err
	}
	return nil
}

func (m *Manager) sendTo(p *PeerConnection, role Role, msg protocol.Message) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return m.sendFrame(p, role, msg.Kind(), b)
}

func (m *Manager) sendFrame(p *PeerConnection, role Role, kind protocol.Kind, b []byte) error {
	if err := p.Send(b); err != nil {
		return err
	}
	observability.RecordFrameSent(role.String(), string(kind))
	return nil
}

func (m *Manager) hasPeer(p *PeerConnection) bool {
	return slices.Contains(m.peers, p)
}

func (m *Manager) dropPeer(p *PeerConnection, cause error) {
	idx := slices.Index(m.peers, p)
	if idx < 0 {
		return
	}
	m.peers = slices.Delete(m.peers, idx, idx+1)
	_ = p.Close()
	observability.RecordPeerDrop(RoleHost.String(), dropReason(cause))
	observability.SetPeersConnected(len(m.peers))
	logs.Warnf("session.dropPeer remote=%q peer_id=%q peers=%d err=%v", p.RemoteAddr(), p.ID(), len(m.peers), cause)
}

func (m *Manager) dropUpstream(cause error) {
	if m.upstream == nil {
		return
	}
	remote := m.upstream.RemoteAddr()
	observability.RecordPeerDrop(RoleClient.String(), dropReason(cause))
	logs.Warnf("session.dropUpstream remote=%q err=%v", remote, cause)
	m.Leave()
	if err := m.router.notice(fmt.Sprintf(noticeDroppedFmt, cause)); err != nil {
		logs.Warnf("session.dropUpstream notice err=%v", err)
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrPeerClosed):
		return "closed"
	case errors.Is(err, ErrWriteFailed):
		return "write_failed"
	case errors.Is(err, ErrOutboxFull):
		return "outbox_full"
	case errors.Is(err, frame.ErrFrameTooLarge):
		return "frame_too_large"
	default:
		return "read_failed"
	}
}
