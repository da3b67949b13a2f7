package protocol

import "errors"

var (
	ErrMalformedFrame = errors.New("protocol: malformed frame")
	ErrInvalidUTF8    = errors.New("protocol: frame is not valid utf-8")
	ErrMissingKind    = errors.New("protocol: missing message kind")
	ErrUnknownKind    = errors.New("protocol: unknown message kind")
	ErrMissingField   = errors.New("protocol: missing required field")
	ErrNilMessage     = errors.New("protocol: nil message")
)

// ReasonBadCode is the err reason sent when an access code does not match.
const ReasonBadCode = "bad-code"
