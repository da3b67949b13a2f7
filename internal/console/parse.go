// Package console parses drill command lines and the net session commands.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/cyberdrill/internal/protocol"
)

const flagPrefix = "--"

// FlagSet is the value stored for a flag given without a value.
const FlagSet = "true"

var (
	ErrInvalidPort = errors.New("console: invalid port")
	ErrMissingHost = errors.New("console: join requires --host <ip>")
)

// NetUsage lists the net session commands.
const NetUsage = "net --host --port 50555 --code <pin> | net --join --host <ip> --port 50555 --code <pin> | net --who | net --sync | net --leave"

// Command is one parsed input line.
type Command struct {
	Base       string
	Flags      map[string]string
	Positional []string
	Raw        string
}

// Has reports whether flag was given.
func (c Command) Has(flag string) bool {
	_, ok := c.Flags[flag]
	return ok
}

// Value returns the flag value, or "" when the flag is absent or bare.
func (c Command) Value(flag string) string {
	v, ok := c.Flags[flag]
	if !ok || v == FlagSet {
		return ""
	}
	return v
}

// Parse splits line on whitespace. "--key value" sets a flag; a "--key"
// followed by another flag or the end of the line is stored as FlagSet.
func Parse(line string) Command {
	raw := strings.TrimSpace(line)
	cmd := Command{Raw: raw, Flags: map[string]string{}}
	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return cmd
	}
	cmd.Base = parts[0]
	for i := 1; i < len(parts); i++ {
		p := parts[i]
		if !strings.HasPrefix(p, flagPrefix) || p == flagPrefix {
			cmd.Positional = append(cmd.Positional, p)
			continue
		}
		key := strings.TrimPrefix(p, flagPrefix)
		val := FlagSet
		if i+1 < len(parts) && !strings.HasPrefix(parts[i+1], flagPrefix) {
			val = parts[i+1]
			i++
		}
		cmd.Flags[key] = val
	}
	return cmd
}

// NetAction is the session operation requested by a net command.
type NetAction string

const (
	NetHost  NetAction = "host"
	NetJoin  NetAction = "join"
	NetWho   NetAction = "who"
	NetSync  NetAction = "sync"
	NetLeave NetAction = "leave"
	NetHelp  NetAction = "help"
)

// NetCommand is a validated net command.
type NetCommand struct {
	Action NetAction
	Host   string
	Port   int
	Code   string
}

// ParseNet interprets a parsed "net" command. --join is checked before
// --host because a join also carries --host <ip>.
func ParseNet(cmd Command) (NetCommand, error) {
	nc := NetCommand{Action: NetHelp, Port: protocol.DefaultPort, Code: cmd.Value("code")}
	if cmd.Has("port") {
		port, err := strconv.Atoi(cmd.Value("port"))
		if err != nil || port <= 0 || port > 65535 {
			return NetCommand{}, fmt.Errorf("%w: %q", ErrInvalidPort, cmd.Flags["port"])
		}
		nc.Port = port
	}

	switch {
	case cmd.Has("join"):
		nc.Action = NetJoin
		nc.Host = cmd.Value("host")
		if nc.Host == "" {
			nc.Host = cmd.Value("join")
		}
		if nc.Host == "" {
			return NetCommand{}, ErrMissingHost
		}
	case cmd.Has("host"):
		nc.Action = NetHost
	case cmd.Has("who"):
		nc.Action = NetWho
	case cmd.Has("sync"):
		nc.Action = NetSync
	case cmd.Has("leave"):
		nc.Action = NetLeave
	}
	return nc, nil
}
