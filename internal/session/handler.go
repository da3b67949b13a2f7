package session

import "github.com/danmuck/cyberdrill/internal/protocol"

// Handler receives the outward effects of routed frames. Calls arrive on the
// goroutine that drives Manager.Poll.
type Handler interface {
	// OnCommand runs on the host for each accepted cmd frame.
	OnCommand(text string)
	// OnState runs on a client for each host snapshot.
	OnState(snap protocol.Snapshot)
	// OnLog runs on a client for each transcript line relayed by the host.
	OnLog(text string)
	// OnNotice reports session status changes in human-readable form.
	OnNotice(text string)
}

// HandlerFuncs adapts optional funcs to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Command func(text string)
	State   func(snap protocol.Snapshot)
	Log     func(text string)
	Notice  func(text string)
}

func (h HandlerFuncs) OnCommand(text string) {
	if h.Command != nil {
		h.Command(text)
	}
}

func (h HandlerFuncs) OnState(snap protocol.Snapshot) {
	if h.State != nil {
		h.State(snap)
	}
}

func (h HandlerFuncs) OnLog(text string) {
	if h.Log != nil {
		h.Log(text)
	}
}

func (h HandlerFuncs) OnNotice(text string) {
	if h.Notice != nil {
		h.Notice(text)
	}
}
