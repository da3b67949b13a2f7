// Package auth compares session access codes.
//
// It holds no session state; the router decides when a code is adopted.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var ErrBadCode = errors.New("auth: access code mismatch")

// Code is a session access code. The empty code only matches an empty code.
type Code string

// Normalize trims surrounding whitespace, which the console never preserves.
func Normalize(raw string) Code {
	return Code(strings.TrimSpace(raw))
}

func (c Code) IsSet() bool { return c != "" }

// Check normalizes presented and compares it against c in constant time.
func (c Code) Check(presented string) error {
	if subtle.ConstantTimeCompare([]byte(c), []byte(Normalize(presented))) != 1 {
		return ErrBadCode
	}
	return nil
}

// Label is the form shown to operators: the code, or "none" when unset.
func (c Code) Label() string {
	if c == "" {
		return "none"
	}
	return string(c)
}
