package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Decode parses one frame. The trailing delimiter is optional. Every failure
// wraps ErrMalformedFrame.
func Decode(frame []byte) (Message, error) {
	line := bytes.TrimSpace(frame)
	if !utf8.Valid(line) {
		return nil, malformed(ErrInvalidUTF8)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, malformed(err)
	}
	env, err := readEnvelope(raw)
	if err != nil {
		return nil, malformed(err)
	}
	return fromEnvelope(env)
}

// readEnvelope looks keys up by exact name. encoding/json folds key case on
// struct targets, which would let {"T":"cmd"} through as a command.
func readEnvelope(raw map[string]json.RawMessage) (envelope, error) {
	var env envelope
	fields := []struct {
		key string
		dst any
	}{
		{"t", &env.T},
		{"code", &env.Code},
		{"c", &env.C},
		{"e", &env.E},
		{"s", &env.S},
	}
	for _, f := range fields {
		if err := readField(raw, f.key, f.dst); err != nil {
			return envelope{}, err
		}
	}
	if v, ok := raw["v"]; ok && !isNull(v) {
		snap, err := readSnapshot(v)
		if err != nil {
			return envelope{}, err
		}
		env.V = &snap
	}
	return env, nil
}

func readSnapshot(v json.RawMessage) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(v, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("v: %w", err)
	}
	var snap Snapshot
	fields := []struct {
		key string
		dst any
	}{
		{"mission", &snap.Mission},
		{"step", &snap.Step},
		{"score", &snap.Score},
		{"time_left", &snap.TimeLeft},
		{"ids", &snap.Detector},
	}
	for _, f := range fields {
		if err := readField(raw, f.key, f.dst); err != nil {
			return Snapshot{}, fmt.Errorf("v.%w", err)
		}
	}
	return snap, nil
}

func readField(raw map[string]json.RawMessage, key string, dst any) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func fromEnvelope(env envelope) (Message, error) {
	switch env.T {
	case "":
		return nil, malformed(ErrMissingKind)
	case KindHello:
		return Hello{Code: env.Code}, nil
	case KindOK:
		return OK{}, nil
	case KindErr:
		return Err{Reason: env.E}, nil
	case KindCmd:
		return Cmd{Text: env.C, Code: env.Code}, nil
	case KindSync:
		return Sync{Code: env.Code}, nil
	case KindState:
		if env.V == nil {
			return nil, malformed(fmt.Errorf("%w: state.v", ErrMissingField))
		}
		return State{Snapshot: *env.V}, nil
	case KindLog:
		return Log{Text: env.S}, nil
	default:
		return nil, malformed(fmt.Errorf("%w: %q", ErrUnknownKind, env.T))
	}
}

func malformed(cause error) error {
	return fmt.Errorf("%w: %w", ErrMalformedFrame, cause)
}
