package protocol

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// envelope is the flat JSON object shared by every kind. Short keys match the
// existing drill clients on the LAN.
type envelope struct {
	T    Kind      `json:"t"`
	Code string    `json:"code,omitempty"`
	C    string    `json:"c,omitempty"`
	E    string    `json:"e,omitempty"`
	V    *Snapshot `json:"v,omitempty"`
	S    string    `json:"s,omitempty"`
}

// Encode serializes msg as one delimiter-terminated frame. Strings must be
// valid UTF-8; json.Marshal would otherwise substitute U+FFFD and the frame
// would no longer decode to msg.
func Encode(msg Message) ([]byte, error) {
	env, err := toEnvelope(msg)
	if err != nil {
		return nil, err
	}
	if !env.validUTF8() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUTF8, env.T)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append(payload, Delimiter), nil
}

// MustEncode is Encode for messages built in code, where failure is a bug.
func MustEncode(msg Message) []byte {
	b, err := Encode(msg)
	if err != nil {
		panic(err)
	}
	return b
}

func toEnvelope(msg Message) (envelope, error) {
	switch m := msg.(type) {
	case Hello:
		return envelope{T: KindHello, Code: m.Code}, nil
	case OK:
		return envelope{T: KindOK}, nil
	case Err:
		return envelope{T: KindErr, E: m.Reason}, nil
	case Cmd:
		return envelope{T: KindCmd, C: m.Text, Code: m.Code}, nil
	case Sync:
		return envelope{T: KindSync, Code: m.Code}, nil
	case State:
		snap := m.Snapshot
		return envelope{T: KindState, V: &snap}, nil
	case Log:
		return envelope{T: KindLog, S: m.Text}, nil
	case nil:
		return envelope{}, ErrNilMessage
	default:
		return envelope{}, fmt.Errorf("%w: %T", ErrUnknownKind, msg)
	}
}

func (e envelope) validUTF8() bool {
	strs := []string{string(e.T), e.Code, e.C, e.E, e.S}
	if e.V != nil {
		strs = append(strs, e.V.Mission, e.V.Detector)
	}
	for _, s := range strs {
		if !utf8.ValidString(s) {
			return false
		}
	}
	return true
}
