// Package config loads drill settings from TOML and overlays them onto the
// service defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/cyberdrill/internal/drill"
)

var ErrInvalidValue = errors.New("config: invalid value")

type fileConfig struct {
	Mode           string `toml:"mode"`
	Port           int    `toml:"port"`
	Code           string `toml:"code"`
	HostAddr       string `toml:"host_addr"`
	ListenHost     string `toml:"listen_host"`
	FixedCode      bool   `toml:"fixed_code"`
	ConnectTimeout string `toml:"connect_timeout"`
	WriteTimeout   string `toml:"write_timeout"`
	PollInterval   string `toml:"poll_interval"`
	TickInterval   string `toml:"tick_interval"`
	MaxFrameBytes  int    `toml:"max_frame_bytes"`
	OutboxDepth    int    `toml:"outbox_depth"`
	MetricsAddr    string `toml:"metrics_addr"`
	LogLevel       string `toml:"log_level"`
	TimeLimit      int    `toml:"time_limit"`
	Difficulty     string `toml:"difficulty"`
}

// Config is the resolved process configuration.
type Config struct {
	Service  drill.ServiceConfig
	LogLevel string
}

func Default() Config {
	return Config{Service: drill.DefaultServiceConfig()}
}

// Load reads path and applies every key it defines onto Default. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load drill config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalidValue, undecoded[0].String())
	}

	svc := &cfg.Service
	if meta.IsDefined("mode") {
		svc.Mode = drill.Mode(strings.ToLower(strings.TrimSpace(raw.Mode)))
	}
	if meta.IsDefined("port") {
		if raw.Port < 0 || raw.Port > 65535 {
			return Config{}, fmt.Errorf("%w: port %d", ErrInvalidValue, raw.Port)
		}
		svc.Port = raw.Port
	}
	if meta.IsDefined("code") {
		svc.Code = strings.TrimSpace(raw.Code)
	}
	if meta.IsDefined("host_addr") {
		svc.HostAddr = strings.TrimSpace(raw.HostAddr)
	}
	if meta.IsDefined("listen_host") {
		svc.Session.ListenHost = strings.TrimSpace(raw.ListenHost)
	}
	if meta.IsDefined("fixed_code") {
		svc.Session.FixedCode = raw.FixedCode
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &svc.Session.ConnectTimeout},
		{"write_timeout", raw.WriteTimeout, &svc.Session.WriteTimeout},
		{"poll_interval", raw.PollInterval, &svc.PollInterval},
		{"tick_interval", raw.TickInterval, &svc.TickInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return Config{}, fmt.Errorf("%w: %s must be positive", ErrInvalidValue, d.key)
		}
		*d.dst = v
	}
	if meta.IsDefined("max_frame_bytes") {
		if raw.MaxFrameBytes < 0 {
			return Config{}, fmt.Errorf("%w: max_frame_bytes %d", ErrInvalidValue, raw.MaxFrameBytes)
		}
		svc.Session.Limits.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("outbox_depth") {
		svc.Session.OutboxDepth = raw.OutboxDepth
	}
	if meta.IsDefined("metrics_addr") {
		svc.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("time_limit") {
		svc.TimeLimit = raw.TimeLimit
	}
	if meta.IsDefined("difficulty") {
		svc.Difficulty = strings.TrimSpace(raw.Difficulty)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := svc.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate drill config: %w", err)
	}
	return cfg, nil
}
