package session

import "errors"

var (
	ErrBind         = errors.New("session: bind failed")
	ErrConnect      = errors.New("session: connect failed")
	ErrPeerClosed   = errors.New("session: peer closed")
	ErrWriteFailed  = errors.New("session: write failed")
	ErrOutboxFull   = errors.New("session: outbox full")
	ErrNotClient    = errors.New("session: not joined to a host")
	ErrCodeMismatch = errors.New("session: access code mismatch")
	ErrHandlerPanic = errors.New("session: handler panic")
)
