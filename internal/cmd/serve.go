package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cpuplot/internal/server"
	"github.com/aaronlmathis/cpuplot/internal/version"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var (
		addr   string
		policy string
	)

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Analyze a log once and serve the report over HTTP",
		Long: `Analyze a router log once and serve the report, the per-window series and
Prometheus metrics until interrupted.

Endpoints:
  /healthz  /version  /metrics
  /api/v1/report
  /api/v1/series
  /api/v1/series/{window}?since=<RFC3339>&step=<duration>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("policy") {
				cfg.Parse.Policy = policy
			}
			if len(args) == 1 {
				cfg.Input.Path = args[0]
			}
			if cfg.Input.Path == "" {
				return errors.New("no log file given (pass a path or set input.path)")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			cmd.SilenceUsage = true

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			info := version.Get()
			logger.Info("Starting cpuplot server",
				zap.String("version", info.Version),
				zap.String("gitCommit", info.GitCommit),
				zap.String("path", cfg.Input.Path),
				zap.String("addr", cfg.Server.Addr))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newAnalyzer(logger, cfg)
			if err != nil {
				return err
			}
			report, err := a.Analyze(ctx, cfg.Input.Path)
			if err != nil {
				if report == nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
					return nil
				}
				// fail-fast stopped early; serve what was parsed
				logger.Error("Analysis stopped early", zap.Error(err))
			}

			return server.New(logger, cfg, report).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&policy, "policy", "skip", "malformed records: skip, fail-fast")
	return cmd
}
