package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/danmuck/cyberdrill/internal/drill"
	"github.com/pterm/pterm"
)

// printer renders transcript lines, colored by their source prefix.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

var prefixStyles = []struct {
	prefix string
	style  pterm.Color
}{
	{"> ", pterm.FgLightWhite},
	{"[REMOTE]", pterm.FgMagenta},
	{"[NET]", pterm.FgCyan},
	{"[IDS]", pterm.FgYellow},
	{"[SELFTEST]", pterm.FgLightBlue},
	{"[AUTO]", pterm.FgLightBlue},
	{"OK:", pterm.FgGreen},
	{"[SYS]", pterm.FgGray},
}

func styleFor(line string) pterm.Color {
	for _, ps := range prefixStyles {
		if strings.HasPrefix(line, ps.prefix) {
			return ps.style
		}
	}
	return pterm.FgDefault
}

func (p *printer) Append(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Fprintln(p.out, styleFor(line).Sprint(line))
}

func (p *printer) banner(cfg drill.ServiceConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	target := "-"
	switch cfg.Mode {
	case drill.ModeHost:
		target = fmt.Sprintf(":%d", cfg.Port)
	case drill.ModeJoin:
		target = fmt.Sprintf("%s:%d", cfg.HostAddr, cfg.Port)
	}
	rows := pterm.TableData{
		{"mode", "session", "difficulty"},
		{string(cfg.Mode), target, drill.LookupDifficulty(cfg.Difficulty).Name},
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return
	}
	pterm.Fprintln(p.out, pterm.DefaultHeader.Sprint("CYBER DRILL"))
	pterm.Fprintln(p.out, table)
}

// readLines feeds stdin lines to the drill loop. The channel closes on EOF.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
