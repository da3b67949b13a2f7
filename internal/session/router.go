package session

import (
	"fmt"
	"strings"

	"github.com/danmuck/cyberdrill/internal/auth"
	"github.com/danmuck/cyberdrill/internal/protocol"
	logs "github.com/danmuck/smplog"
)

const (
	NoticeConnected   = "connected to host"
	noticeRejectedFmt = "host rejected: %s"
)

// Router applies access-code rules and dispatches decoded frames by role.
// It holds the session code, which a host may adopt from the first hello.
type Router struct {
	code      auth.Code
	fixedCode bool
	handler   Handler
}

func NewRouter(h Handler) *Router {
	if h == nil {
		h = HandlerFuncs{}
	}
	return &Router{handler: h}
}

func (r *Router) Code() string { return string(r.code) }

// Reset installs code as the session code for a new session.
func (r *Router) Reset(code string) {
	r.code = auth.Normalize(code)
}

// Route handles one inbound message. reply is the frame to send back to the
// originating peer, if any. err reports a rejected or failed message; it never
// means the connection should be dropped.
func (r *Router) Route(role Role, msg protocol.Message) (reply protocol.Message, err error) {
	switch role {
	case RoleHost:
		return r.routeHost(msg)
	case RoleClient:
		return nil, r.routeClient(msg)
	default:
		logs.Debugf("session.Route ignored kind=%q role=%q", msg.Kind(), role)
		return nil, nil
	}
}

func (r *Router) routeHost(msg protocol.Message) (protocol.Message, error) {
	code, gated := protocol.AccessCode(msg)
	if !gated {
		logs.Debugf("session.Route host ignored kind=%q", msg.Kind())
		return nil, nil
	}
	if err := r.code.Check(code); err != nil {
		switch {
		case msg.Kind() == protocol.KindHello && !r.code.IsSet() && !r.fixedCode:
			r.code = auth.Normalize(code)
			logs.Infof("session.Route adopted access code from first hello")
		case !r.code.IsSet() && r.fixedCode:
		default:
			return protocol.Err{Reason: protocol.ReasonBadCode},
				fmt.Errorf("%w: kind=%s: %w", ErrCodeMismatch, msg.Kind(), err)
		}
	}

	switch m := msg.(type) {
	case protocol.Hello:
		return protocol.OK{}, nil
	case protocol.Cmd:
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return nil, nil
		}
		return nil, r.deliver(m.Kind(), func() { r.handler.OnCommand(text) })
	default:
		return nil, nil
	}
}

func (r *Router) routeClient(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.State:
		return r.deliver(m.Kind(), func() { r.handler.OnState(m.Snapshot) })
	case protocol.Log:
		return r.deliver(m.Kind(), func() { r.handler.OnLog(m.Text) })
	case protocol.OK:
		return r.deliver(m.Kind(), func() { r.handler.OnNotice(NoticeConnected) })
	case protocol.Err:
		return r.deliver(m.Kind(), func() { r.handler.OnNotice(fmt.Sprintf(noticeRejectedFmt, m.Reason)) })
	default:
		logs.Debugf("session.Route client ignored kind=%q", msg.Kind())
		return nil
	}
}

func (r *Router) notice(text string) error {
	return r.deliver("notice", func() { r.handler.OnNotice(text) })
}

func (r *Router) deliver(kind protocol.Kind, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: kind=%s: %v", ErrHandlerPanic, kind, rec)
		}
	}()
	fn()
	return nil
}
