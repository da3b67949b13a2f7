package protocol

// Kind is the wire value of the required "t" field.
type Kind string

const (
	KindHello Kind = "hello"
	KindOK    Kind = "ok"
	KindErr   Kind = "err"
	KindCmd   Kind = "cmd"
	KindSync  Kind = "sync"
	KindState Kind = "state"
	KindLog   Kind = "log"
)

// DefaultPort is the LAN port used when none is given.
const DefaultPort = 50555

// Delimiter terminates every frame on the wire.
const Delimiter byte = '\n'

// Message is the closed set of session messages. Only the variants in this
// package implement it.
type Message interface {
	Kind() Kind
	isMessage()
}

// Snapshot is the authoritative game-state summary broadcast by the host.
type Snapshot struct {
	Mission  string `json:"mission"`
	Step     int    `json:"step"`
	Score    int    `json:"score"`
	TimeLeft int    `json:"time_left"`
	Detector string `json:"ids"`
}

// Hello is the client's first frame; Code is the access code it joins with.
type Hello struct{ Code string }

// OK acknowledges an accepted hello.
type OK struct{}

// Err reports a rejected frame.
type Err struct{ Reason string }

// Cmd relays one command line from a client to the host.
type Cmd struct {
	Text string
	Code string
}

// Sync asks the host for a fresh snapshot.
type Sync struct{ Code string }

// State carries one host snapshot.
type State struct{ Snapshot Snapshot }

// Log carries one transcript line produced by the host.
type Log struct{ Text string }

func (Hello) Kind() Kind { return KindHello }
func (OK) Kind() Kind    { return KindOK }
func (Err) Kind() Kind   { return KindErr }
func (Cmd) Kind() Kind   { return KindCmd }
func (Sync) Kind() Kind  { return KindSync }
func (State) Kind() Kind { return KindState }
func (Log) Kind() Kind   { return KindLog }

func (Hello) isMessage() {}
func (OK) isMessage()    {}
func (Err) isMessage()   {}
func (Cmd) isMessage()   {}
func (Sync) isMessage()  {}
func (State) isMessage() {}
func (Log) isMessage()   {}

// AccessCode returns the code carried by hello, cmd and sync frames.
// ok reports whether the kind is subject to access-code enforcement.
func AccessCode(msg Message) (code string, ok bool) {
	switch m := msg.(type) {
	case Hello:
		return m.Code, true
	case Cmd:
		return m.Code, true
	case Sync:
		return m.Code, true
	default:
		return "", false
	}
}
