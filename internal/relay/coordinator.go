// Package relay binds a drill to a session: the host broadcasts state and
// transcript lines, clients relay commands upstream and apply host state.
package relay

import (
	"context"
	"strings"

	"github.com/danmuck/cyberdrill/internal/console"
	"github.com/danmuck/cyberdrill/internal/observability"
	"github.com/danmuck/cyberdrill/internal/protocol"
	"github.com/danmuck/cyberdrill/internal/session"
	logs "github.com/danmuck/smplog"
)

const (
	prefixEcho   = "> "
	prefixRemote = "[REMOTE] > "
	prefixNet    = "[NET] "
	prefixSys    = "[SYS] "
)

// Game is the mutable drill state owned by the local process.
type Game interface {
	Snapshot() protocol.Snapshot
	Restore(snap protocol.Snapshot)
	// Execute runs one command and returns the transcript lines it produced.
	Execute(cmd console.Command) []string
}

// Transcript receives every line shown to the local operator.
type Transcript interface {
	Append(line string)
}

// TranscriptFunc adapts a func to Transcript.
type TranscriptFunc func(line string)

func (f TranscriptFunc) Append(line string) { f(line) }

// Outcome reports what Submit did with a line.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeLocal
	OutcomeRelayed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLocal:
		return "local"
	case OutcomeRelayed:
		return "relayed"
	case OutcomeFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// localBases run on a client without a round trip to the host.
var localBases = map[string]bool{
	"net":      true,
	"selftest": true,
}

// Coordinator owns one session.Manager and is its Handler. Like the manager
// it must be driven from a single goroutine.
type Coordinator struct {
	mgr  *session.Manager
	game Game
	out  Transcript
}

func New(cfg session.Config, game Game, out Transcript) *Coordinator {
	if out == nil {
		out = TranscriptFunc(func(string) {})
	}
	c := &Coordinator{game: game, out: out}
	c.mgr = session.NewManager(cfg, c)
	return c
}

func (c *Coordinator) Session() *session.Manager { return c.mgr }
func (c *Coordinator) Role() session.Role        { return c.mgr.Role() }

// Poll routes pending inbound frames.
func (c *Coordinator) Poll() { c.mgr.Poll() }

// Tick broadcasts the current snapshot when hosting and returns the number of
// peers it was queued to.
func (c *Coordinator) Tick() int {
	if c.mgr.Role() != session.RoleHost {
		return 0
	}
	return c.mgr.Broadcast(protocol.State{Snapshot: c.game.Snapshot()})
}

// Log appends line locally and, when hosting, relays it to every peer.
func (c *Coordinator) Log(line string) {
	c.out.Append(line)
	if c.mgr.Role() == session.RoleHost {
		c.mgr.Broadcast(protocol.Log{Text: line})
	}
}

// Submit handles one operator line. Clients relay everything outside the
// local allow-list to the host and never execute it themselves.
func (c *Coordinator) Submit(ctx context.Context, line string) Outcome {
	line = strings.TrimSpace(line)
	if line == "" {
		return OutcomeIgnored
	}
	c.Log(prefixEcho + line)
	cmd := console.Parse(line)

	if cmd.Base == "net" {
		c.runNet(ctx, cmd)
		return OutcomeLocal
	}
	if c.mgr.Role() == session.RoleClient && !localBases[cmd.Base] {
		if err := c.mgr.SendCommand(line); err != nil {
			c.Log(prefixNet + "send failed: " + err.Error())
			return OutcomeFailed
		}
		return OutcomeRelayed
	}
	c.execute(cmd)
	return OutcomeLocal
}

// Host starts hosting on port.
func (c *Coordinator) Host(port int, code string) error {
	msg, err := c.mgr.StartHost(port, code)
	if err != nil {
		c.Log(prefixNet + "host error: " + err.Error())
		return err
	}
	c.Log(prefixNet + msg)
	return nil
}

// Join connects to a host and asks for an immediate sync.
func (c *Coordinator) Join(ctx context.Context, host string, port int, code string) error {
	msg, err := c.mgr.StartClient(ctx, host, port, code)
	if err != nil {
		c.Log(prefixNet + "join error: " + err.Error())
		return err
	}
	c.Log(prefixNet + msg)
	if err := c.mgr.RequestSync(); err != nil {
		c.Log(prefixNet + "sync failed: " + err.Error())
		return err
	}
	return nil
}

// Leave ends the session. It is a no-op when idle.
func (c *Coordinator) Leave() {
	wasActive := c.mgr.Role() != session.RoleNone
	c.mgr.Leave()
	if wasActive {
		c.Log(prefixNet + "disconnected")
	}
}

// Peers logs and returns the current peer list.
func (c *Coordinator) Peers() []string {
	peers := c.mgr.ListPeers()
	label := "none"
	if len(peers) > 0 {
		label = strings.Join(peers, ", ")
	}
	c.Log(prefixNet + "peers: " + label)
	return peers
}

// Status is the published view of the session for the status endpoint.
func (c *Coordinator) Status() observability.SessionStatus {
	return observability.SessionStatus{
		Role:  c.mgr.Role().String(),
		Addr:  c.mgr.Addr(),
		Code:  c.mgr.Code() != "",
		Peers: c.mgr.ListPeers(),
	}
}

func (c *Coordinator) runNet(ctx context.Context, cmd console.Command) {
	nc, err := console.ParseNet(cmd)
	if err != nil {
		c.Log(prefixSys + err.Error())
		return
	}
	switch nc.Action {
	case console.NetHost:
		_ = c.Host(nc.Port, nc.Code)
	case console.NetJoin:
		_ = c.Join(ctx, nc.Host, nc.Port, nc.Code)
	case console.NetWho:
		c.Peers()
	case console.NetSync:
		if err := c.mgr.RequestSync(); err != nil {
			c.Log(prefixNet + "sync failed: " + err.Error())
		}
	case console.NetLeave:
		c.Leave()
	default:
		c.Log(prefixSys + console.NetUsage)
	}
}

func (c *Coordinator) execute(cmd console.Command) {
	for _, line := range c.game.Execute(cmd) {
		c.Log(line)
	}
	if c.mgr.Role() == session.RoleHost {
		c.Tick()
	}
}

func (c *Coordinator) OnCommand(text string) {
	c.out.Append(prefixRemote + text)
	cmd := console.Parse(text)
	if cmd.Base == "net" {
		logs.Warnf("relay.OnCommand ignored remote session command text=%q", text)
		c.out.Append(prefixSys + "remote net commands are not allowed")
		return
	}
	c.execute(cmd)
}

func (c *Coordinator) OnState(snap protocol.Snapshot) {
	c.game.Restore(Merge(c.game.Snapshot(), snap))
}

func (c *Coordinator) OnLog(text string) {
	c.out.Append(text)
}

func (c *Coordinator) OnNotice(text string) {
	c.out.Append(prefixNet + text)
}
