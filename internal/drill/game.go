package drill

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/cyberdrill/internal/console"
	"github.com/danmuck/cyberdrill/internal/protocol"
)

const (
	DetectorClean   = "CLEAN"
	DetectorSuspect = "SUSPECT"
	DetectorAttack  = "ATTACK"

	baselineRate  = 150
	attackRate    = 600
	stableTicks   = 5
	stepReward    = 100
	missionCode   = "A3"
	missionName   = "NET-SIM: DDoS Drill"
	missionLimitS = 200
)

// Difficulty scales the time limit, rewards and penalties of a mission.
type Difficulty struct {
	Name      string
	TimeMult  float64
	ScoreMult float64
	Penalty   int
}

var difficulties = map[string]Difficulty{
	"easy":   {Name: "Easy", TimeMult: 1.3, ScoreMult: 1.0, Penalty: 2},
	"normal": {Name: "Normal", TimeMult: 1.0, ScoreMult: 1.0, Penalty: 5},
	"hard":   {Name: "Hard", TimeMult: 0.85, ScoreMult: 1.2, Penalty: 8},
	"insane": {Name: "Insane", TimeMult: 0.7, ScoreMult: 1.5, Penalty: 12},
}

// LookupDifficulty resolves name case-insensitively, falling back to Normal.
func LookupDifficulty(name string) Difficulty {
	if d, ok := difficulties[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d
	}
	return difficulties["normal"]
}

type step struct {
	title string
	hint  string
	done  string
	check func(g *Game, cmd console.Command) bool
}

// Game is the local stand-in for the mission engine: one scripted DDoS drill
// with a deterministic load model. It is not safe for concurrent use.
type Game struct {
	diff      Difficulty
	steps     []step
	stepIdx   int
	score     int
	timeTotal int
	timeLeft  int
	finished  bool

	ddos       bool
	ddosRate   int
	rateLimit  int
	cleanTicks int
	// detector is the last label shown; a client overwrites it from the host.
	detector string
}

// NewGame builds the drill. timeLimit in seconds overrides the mission limit
// when positive.
func NewGame(diff Difficulty, timeLimit int) *Game {
	if timeLimit <= 0 {
		timeLimit = missionLimitS
	}
	total := int(float64(timeLimit) * diff.TimeMult)
	g := &Game{
		diff:      diff,
		steps:     ddosSteps(),
		timeTotal: total,
		timeLeft:  total,
	}
	g.detector = g.detect()
	return g
}

func ddosSteps() []step {
	return []step{
		{
			title: "Verify the IDS baseline has no anomalies.",
			hint:  "ddos --check",
			done:  "Baseline clean.",
			check: func(g *Game, c console.Command) bool {
				return c.Base == "ddos" && c.Has("check") && g.detect() == DetectorClean
			},
		},
		{
			title: "Start load against base-ops.",
			hint:  "ddos --rate 5000 --target base-ops",
			done:  "DDoS emulation running.",
			check: func(g *Game, c console.Command) bool {
				return c.Base == "ddos" && c.Value("rate") == "5000" && c.Value("target") == "base-ops" && g.ddos
			},
		},
		{
			title: "Mitigate to at most 120 req/s.",
			hint:  "mitigate --mode rate-limit --limit 120",
			done:  "Metrics under threshold.",
			check: func(g *Game, c console.Command) bool {
				return c.Base == "mitigate" && c.Value("mode") == "rate-limit" && atoi(c.Value("limit"), 9999) <= 120
			},
		},
		{
			title: fmt.Sprintf("Stop the load after %ds without an attack verdict.", stableTicks),
			hint:  "ddos --stop",
			done:  "Load stopped, IDS clean.",
			check: func(g *Game, c console.Command) bool {
				return c.Base == "ddos" && c.Has("stop") && g.cleanTicks >= stableTicks
			},
		},
	}
}

// Intro returns the opening transcript lines.
func (g *Game) Intro() []string {
	return []string{
		fmt.Sprintf("[SYS] Mission %s '%s'. Limit: %ds", missionCode, missionName, g.timeTotal),
		"[SYS] Difficulty: " + g.diff.Name,
		"[SYS] Type 'help' for commands.",
		"[SYS] First step: " + g.steps[0].title,
	}
}

func (g *Game) Snapshot() protocol.Snapshot {
	return protocol.Snapshot{
		Mission:  missionCode,
		Step:     g.stepIdx,
		Score:    g.score,
		TimeLeft: g.timeLeft,
		Detector: g.detector,
	}
}

// Restore applies an already merged snapshot from the host.
func (g *Game) Restore(snap protocol.Snapshot) {
	g.stepIdx = max(0, min(snap.Step, len(g.steps)-1))
	g.score = snap.Score
	g.timeLeft = snap.TimeLeft
	if snap.Detector != "" {
		g.detector = snap.Detector
	}
}

func (g *Game) Finished() bool { return g.finished }

// Tick advances the load model and the clock by one second.
func (g *Game) Tick() []string {
	if g.finished {
		return nil
	}
	g.detector = g.detect()
	if g.detector == DetectorAttack {
		g.cleanTicks = 0
	} else {
		g.cleanTicks++
	}
	g.timeLeft--
	if g.timeLeft <= 0 {
		g.timeLeft = 0
		g.finished = true
		return []string{"[SYS] Time is up.", g.summary()}
	}
	return nil
}

// Execute runs one command against the mission and validates the current step.
func (g *Game) Execute(cmd console.Command) []string {
	if g.finished {
		return []string{"[SYS] Mission is over. " + g.summary()}
	}
	switch cmd.Base {
	case "":
		return nil
	case "help":
		return g.help()
	case "selftest":
		return SelfTest(g.diff)
	}

	var out []string
	switch cmd.Base {
	case "status":
		out = append(out,
			fmt.Sprintf("[SYS] Step %d/%d | Time %ds | Score %d", g.stepIdx+1, len(g.steps), g.timeLeft, g.score),
			fmt.Sprintf("[NET] req/s=%d | IDS %s", g.load(), g.detect()),
		)
	case "scan":
		out = append(out, fmt.Sprintf("[NET-SIM] Scan: req/s=%d", g.load()))
	case "ddos":
		out = append(out, g.runDDoS(cmd)...)
	case "mitigate":
		out = append(out, g.runMitigate(cmd)...)
	default:
		return []string{"[SYS] Unknown or disallowed command for this mission."}
	}

	g.detector = g.detect()
	st := g.steps[g.stepIdx]
	if st.check(g, cmd) {
		g.score += int(stepReward * g.diff.ScoreMult)
		out = append(out, "OK: "+st.done)
		out = append(out, g.advance()...)
	} else {
		g.score = max(0, g.score-g.diff.Penalty)
		out = append(out, fmt.Sprintf("[SYS] Off target. (-%d)", g.diff.Penalty))
	}
	return out
}

func (g *Game) runDDoS(cmd console.Command) []string {
	switch {
	case cmd.Has("check"):
		verdict := "[IDS] No anomalies"
		if g.detect() != DetectorClean {
			verdict = "[IDS] DDoS SUSPECTED"
		}
		return []string{fmt.Sprintf("[IDS] req/s=%d", g.load()), verdict}
	case cmd.Has("stop"):
		g.ddos = false
		g.ddosRate = 0
		return []string{"[NET-SIM] DDoS emulation off"}
	case cmd.Has("rate") || cmd.Has("target"):
		g.ddos = true
		g.ddosRate = max(1, atoi(cmd.Value("rate"), 1000))
		target := cmd.Value("target")
		if target == "" {
			target = "base-ops"
		}
		return []string{fmt.Sprintf("[NET-SIM] Sim load active: rate=%d target=%s", g.ddosRate, target)}
	default:
		return []string{"[SYS] ddos --check | --rate <n> --target <name> | --stop"}
	}
}

func (g *Game) runMitigate(cmd console.Command) []string {
	switch cmd.Value("mode") {
	case "rate-limit":
		g.rateLimit = max(1, atoi(cmd.Value("limit"), 100))
		return []string{fmt.Sprintf("[FIREWALL] Rate-limit %d req/s", g.rateLimit)}
	case "off":
		g.rateLimit = 0
		return []string{"[FIREWALL] Rate-limit removed"}
	default:
		return []string{"[SYS] mitigate --mode rate-limit --limit <n> | --mode off"}
	}
}

func (g *Game) advance() []string {
	if g.stepIdx+1 < len(g.steps) {
		g.stepIdx++
		next := g.steps[g.stepIdx]
		return []string{"[SYS] Next step: " + next.title, "[SYS] Hint: " + next.hint}
	}
	g.finished = true
	return []string{"[SYS] Mission complete!", g.summary()}
}

func (g *Game) help() []string {
	st := g.steps[g.stepIdx]
	return []string{
		"[SYS] Commands: help status scan ddos mitigate selftest net",
		"[SYS] " + console.NetUsage,
		"[SYS] Current step: " + st.title,
		"[SYS] Hint: " + st.hint,
	}
}

func (g *Game) summary() string {
	return fmt.Sprintf("[SYS] Score %d, time left %ds, rank %s", g.score, g.timeLeft, Rank(g.score))
}

// load is the effective request rate after the rate limit.
func (g *Game) load() int {
	rate := baselineRate
	if g.ddos {
		rate += g.ddosRate
	}
	if g.rateLimit > 0 {
		rate = min(rate, g.rateLimit)
	}
	return rate
}

func (g *Game) detect() string {
	switch {
	case g.load() > attackRate && g.ddos:
		return DetectorAttack
	case g.load() > attackRate || g.ddos:
		return DetectorSuspect
	default:
		return DetectorClean
	}
}

// Rank maps a final score to a title.
func Rank(score int) string {
	switch {
	case score >= 700:
		return "Cyber Major"
	case score >= 400:
		return "Operator"
	case score >= 200:
		return "Recruit"
	default:
		return "Cadet"
	}
}

// SelfTest plays the scripted solution against a scratch game and reports
// PASS or FAIL. The caller's game is not touched.
func SelfTest(diff Difficulty) []string {
	g := NewGame(diff, 0)
	plan := []struct {
		line  string
		ticks int
	}{
		{"ddos --check", 1},
		{"ddos --rate 5000 --target base-ops", 1},
		{"mitigate --mode rate-limit --limit 120", stableTicks + 1},
		{"ddos --stop", 1},
	}
	out := []string{fmt.Sprintf("[SELFTEST] Start %s %s", missionCode, diff.Name)}
	for _, p := range plan {
		out = append(out, "[AUTO] > "+p.line)
		g.Execute(console.Parse(p.line))
		for range p.ticks {
			g.Tick()
		}
	}
	verdict := "FAIL"
	if g.finished && g.timeLeft > 0 {
		verdict = "PASS"
	}
	return append(out, fmt.Sprintf("[SELFTEST] %s ... %s (+%d points)", missionCode, verdict, g.score))
}

func atoi(raw string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
