// Package frame splits a byte stream into delimiter-terminated frames.
package frame

import (
	"bytes"
	"errors"
)

const Delimiter byte = '\n'

var ErrFrameTooLarge = errors.New("frame: partial frame exceeds limit")

// Limits constrains how much undelimited data a Splitter will hold.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 1024 * 1024}
}

// Splitter accumulates stream chunks and yields complete frames in receipt
// order. Between calls it holds at most one partial frame.
type Splitter struct {
	limits  Limits
	pending []byte
}

func NewSplitter(limits Limits) *Splitter {
	return &Splitter{limits: limits}
}

// Append adds chunk to the buffer and returns every frame it completes,
// without delimiters. Blank frames are skipped. When the remaining partial
// frame exceeds the limit the buffer is discarded and ErrFrameTooLarge is
// returned alongside any frames completed before it.
func (s *Splitter) Append(chunk []byte) ([][]byte, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	s.pending = append(s.pending, chunk...)

	var frames [][]byte
	for {
		i := bytes.IndexByte(s.pending, Delimiter)
		if i < 0 {
			break
		}
		line := s.pending[:i]
		if len(bytes.TrimSpace(line)) > 0 {
			out := make([]byte, len(line))
			copy(out, line)
			frames = append(frames, out)
		}
		s.pending = s.pending[i+1:]
	}

	if len(s.pending) == 0 {
		s.pending = nil
	} else if s.limits.MaxFrameBytes > 0 && len(s.pending) > s.limits.MaxFrameBytes {
		s.pending = nil
		return frames, ErrFrameTooLarge
	}
	return frames, nil
}

// Pending reports the size of the buffered partial frame.
func (s *Splitter) Pending() int {
	return len(s.pending)
}

func (s *Splitter) Reset() {
	s.pending = nil
}
