package session

import (
	"time"

	"github.com/danmuck/cyberdrill/internal/protocol/frame"
)

// Config defines socket and buffering defaults for one Manager.
type Config struct {
	// ListenHost is the interface StartHost binds; empty means all.
	ListenHost     string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	ReadChunkBytes int
	InboundDepth   int
	OutboxDepth    int
	AcceptBacklog  int
	// FixedCode disables first-hello code adoption. An empty host code then
	// admits every peer.
	FixedCode bool
	// Limits bounds buffered partial frames. Zero MaxFrameBytes is unbounded.
	Limits frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 3 * time.Second,
		WriteTimeout:   2 * time.Second,
		ReadChunkBytes: 4096,
		InboundDepth:   64,
		OutboxDepth:    64,
		AcceptBacklog:  16,
		Limits:         frame.DefaultLimits(),
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadChunkBytes <= 0 {
		c.ReadChunkBytes = def.ReadChunkBytes
	}
	if c.InboundDepth <= 0 {
		c.InboundDepth = def.InboundDepth
	}
	if c.OutboxDepth <= 0 {
		c.OutboxDepth = def.OutboxDepth
	}
	if c.AcceptBacklog <= 0 {
		c.AcceptBacklog = def.AcceptBacklog
	}
	return c
}
