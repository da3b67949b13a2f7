package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/cyberdrill/internal/config"
	"github.com/danmuck/cyberdrill/internal/drill"
	"github.com/danmuck/cyberdrill/internal/logging"
	logs "github.com/danmuck/smplog"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "drillctl: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath  string
	logLevel    string
	metricsAddr string
	difficulty  string
	timeLimit   int
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "drillctl",
		Short:         "Cyber drill console with LAN session sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "TOML config file")
	pf.StringVar(&g.logLevel, "log-level", "", "trace|debug|info|warn|error|off")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "serve /healthz, /metrics and /session on this address")
	pf.StringVar(&g.difficulty, "difficulty", "", "easy|normal|hard|insane")
	pf.IntVar(&g.timeLimit, "time-limit", 0, "mission time limit in seconds")

	root.AddCommand(
		soloCmd(g),
		hostCmd(g),
		joinCmd(g),
		configCmd(),
	)
	return root
}

func soloCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "solo",
		Short: "Run the drill without a session (net commands still work)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolve(cmd, g, drill.ModeSolo)
			if err != nil {
				return err
			}
			return runDrill(cfg)
		},
	}
}

func hostCmd(g *globalFlags) *cobra.Command {
	var (
		port   int
		code   string
		listen string
	)
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host an authoritative session on the LAN",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolve(cmd, g, drill.ModeHost)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Service.Port = port
			}
			if cmd.Flags().Changed("code") {
				cfg.Service.Code = code
			}
			if cmd.Flags().Changed("listen") {
				cfg.Service.Session.ListenHost = listen
			}
			return runDrill(cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 50555, "listen port")
	cmd.Flags().StringVar(&code, "code", "", "access code; empty adopts the first joiner's code")
	cmd.Flags().StringVar(&listen, "listen", "", "interface to bind; empty means all")
	return cmd
}

func joinCmd(g *globalFlags) *cobra.Command {
	var (
		addr string
		port int
		code string
	)
	cmd := &cobra.Command{
		Use:   "join <host>",
		Short: "Join a hosted session and relay commands to it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(cmd, g, drill.ModeJoin)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Service.HostAddr = args[0]
			}
			if cmd.Flags().Changed("addr") {
				cfg.Service.HostAddr = addr
			}
			if cmd.Flags().Changed("port") {
				cfg.Service.Port = port
			}
			if cmd.Flags().Changed("code") {
				cfg.Service.Code = code
			}
			return runDrill(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "host address")
	cmd.Flags().IntVarP(&port, "port", "p", 50555, "host port")
	cmd.Flags().StringVar(&code, "code", "", "access code")
	return cmd
}

func configCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "config [path]",
		Short: "Print or write an example config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), config.Template())
				return nil
			}
			return config.WriteTemplate(args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// resolve loads the config file, then applies global flags that were set.
func resolve(cmd *cobra.Command, g *globalFlags, mode drill.Mode) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Service.Mode = mode
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Service.MetricsAddr = g.metricsAddr
	}
	if flags.Changed("difficulty") {
		cfg.Service.Difficulty = g.difficulty
	}
	if flags.Changed("time-limit") {
		cfg.Service.TimeLimit = g.timeLimit
	}
	return cfg, nil
}

func runDrill(cfg config.Config) error {
	logging.ConfigureRuntime()
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		logs.Warnf("drillctl ignoring unknown log_level=%q", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := newPrinter(os.Stdout)
	printer.banner(cfg.Service)
	svc := drill.NewService(cfg.Service, printer)
	return svc.Run(ctx, readLines(ctx, os.Stdin))
}
