package drill

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danmuck/cyberdrill/internal/observability"
	"github.com/danmuck/cyberdrill/internal/protocol"
	"github.com/danmuck/cyberdrill/internal/relay"
	"github.com/danmuck/cyberdrill/internal/session"
	logs "github.com/danmuck/smplog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidPollInterval = errors.New("drill: invalid poll interval")
	ErrInvalidTickInterval = errors.New("drill: invalid tick interval")
	ErrInvalidMode         = errors.New("drill: invalid mode")
)

// Mode selects how the service enters a session at startup.
type Mode string

const (
	ModeSolo Mode = "solo"
	ModeHost Mode = "host"
	ModeJoin Mode = "join"
)

// ServiceConfig configures one drill process.
type ServiceConfig struct {
	Mode         Mode
	Port         int
	Code         string
	HostAddr     string
	PollInterval time.Duration
	TickInterval time.Duration
	// TimeLimit in seconds overrides the mission limit when positive.
	TimeLimit   int
	Difficulty  string
	MetricsAddr string
	Session     session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Mode:         ModeSolo,
		Port:         protocol.DefaultPort,
		HostAddr:     "127.0.0.1",
		PollInterval: 100 * time.Millisecond,
		TickInterval: time.Second,
		Difficulty:   "normal",
		Session:      session.DefaultConfig(),
	}
}

func (c ServiceConfig) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	switch c.Mode {
	case ModeSolo, ModeHost, ModeJoin:
		return nil
	default:
		return ErrInvalidMode
	}
}

// Service runs the cooperative drill loop. One goroutine owns the game, the
// coordinator and the session; input lines and timers are fanned into it.
type Service struct {
	cfg   ServiceConfig
	game  *Game
	coord *relay.Coordinator

	status    atomic.Pointer[observability.SessionStatus]
	startedAt time.Time
}

func NewService(cfg ServiceConfig, out relay.Transcript) *Service {
	cfg.Session = cfg.Session.WithDefaults()
	game := NewGame(LookupDifficulty(cfg.Difficulty), cfg.TimeLimit)
	s := &Service{
		cfg:       cfg,
		game:      game,
		coord:     relay.New(cfg.Session, game, out),
		startedAt: time.Now(),
	}
	s.publish()
	return s
}

func (s *Service) Game() *Game                     { return s.game }
func (s *Service) Coordinator() *relay.Coordinator { return s.coord }

// Status returns the last published session view. Safe from any goroutine.
func (s *Service) Status() observability.SessionStatus {
	if st := s.status.Load(); st != nil {
		return *st
	}
	return observability.SessionStatus{Role: session.RoleNone.String()}
}

// Run drives the drill until ctx ends or input is closed. When MetricsAddr is
// set the status endpoint is served beside the loop.
func (s *Service) Run(ctx context.Context, input <-chan string) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.loop(gctx, input)
	})
	if strings.TrimSpace(s.cfg.MetricsAddr) != "" {
		g.Go(func() error {
			return s.serveStatus(gctx, s.cfg.MetricsAddr)
		})
	}
	return g.Wait()
}

func (s *Service) loop(ctx context.Context, input <-chan string) error {
	defer s.publish()
	defer s.coord.Leave()

	for _, line := range s.game.Intro() {
		s.coord.Log(line)
	}
	s.enter(ctx)

	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()
	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			logs.Infof("drill.Service.loop stopping err=%v", ctx.Err())
			return nil
		case line, ok := <-input:
			if !ok {
				logs.Infof("drill.Service.loop input closed")
				return nil
			}
			s.coord.Submit(ctx, line)
		case <-poll.C:
			s.coord.Poll()
		case <-tick.C:
			s.simTick()
		}
		s.publish()
	}
}

func (s *Service) enter(ctx context.Context) {
	var err error
	switch s.cfg.Mode {
	case ModeHost:
		err = s.coord.Host(s.cfg.Port, s.cfg.Code)
	case ModeJoin:
		err = s.coord.Join(ctx, s.cfg.HostAddr, s.cfg.Port, s.cfg.Code)
	}
	if err != nil {
		logs.Warnf("drill.Service.enter mode=%s err=%v", s.cfg.Mode, err)
	}
}

// simTick advances the authoritative game. A client shows the host's clock
// and never runs its own simulation.
func (s *Service) simTick() {
	if s.coord.Role() == session.RoleClient {
		return
	}
	for _, line := range s.game.Tick() {
		s.coord.Log(line)
	}
	s.coord.Tick()
}

func (s *Service) publish() {
	st := s.coord.Status()
	s.status.Store(&st)
}

func (s *Service) serveStatus(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           observability.NewRouter(s.startedAt, s.Status),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logs.Infof("drill.Service.serveStatus listening addr=%q", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logs.Errorf(err, "drill.Service.serveStatus addr=%q", addr)
		return err
	}
}
