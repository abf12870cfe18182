package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaronlmathis/cpuplot/internal/analyzer"
	"github.com/aaronlmathis/cpuplot/internal/chart"
	"github.com/aaronlmathis/cpuplot/internal/config"
	"github.com/aaronlmathis/cpuplot/internal/metrics"
)

type analyzeOptions struct {
	*rootOptions
	format  string
	policy  string
	windows string
	height  int
	width   int
	noColor bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Print usage averages and plot each window",
		Long: `Analyze a router log, print the average control plane usage for each
window and draw a chart for every window whose timestamps and samples pair up.

Examples:
  cpuplot analyze show-tech.log
  cpuplot analyze show-tech.log --window 5m --format json
  cpuplot analyze show-tech.log --policy fail-fast --format window`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "o", config.FormatText, "output format: text, json, window")
	cmd.Flags().StringVar(&opts.policy, "policy", "skip", "malformed records: skip, fail-fast")
	cmd.Flags().StringVarP(&opts.windows, "window", "w", "5s,1m,5m", "usage windows to report (comma-separated)")
	cmd.Flags().IntVar(&opts.height, "height", 15, "chart height in rows")
	cmd.Flags().IntVar(&opts.width, "width", 0, "chart width in columns (0 = terminal width)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colors")

	return cmd
}

// apply copies explicitly set flags over cfg
func (o *analyzeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = o.format
	}
	if flags.Changed("policy") {
		cfg.Parse.Policy = o.policy
	}
	if flags.Changed("window") {
		cfg.SetWindows(o.windows)
	}
	if flags.Changed("height") {
		cfg.Output.Height = o.height
	}
	if flags.Changed("width") {
		cfg.Output.Width = o.width
	}
	if o.noColor {
		cfg.Output.Color = false
	}
}

func runAnalyze(cmd *cobra.Command, args []string, opts *analyzeOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	if cfg.Input.Path == "" {
		return errors.New("no log file given (pass a path or set input.path)")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// past this point failures are reported, not returned
	cmd.SilenceUsage = true

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newAnalyzer(logger, cfg)
	if err != nil {
		return err
	}

	report, err := a.Analyze(ctx, cfg.Input.Path)
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "Interrupted")
			return nil
		}
		fmt.Fprintln(stderr, "Error:", err)
		if report == nil {
			return nil
		}
	}

	if err := output(stdout, logger, a, cfg, report); err != nil {
		logger.Error("Failed to write output", zap.Error(err))
		fmt.Fprintln(stderr, "Error:", err)
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("Failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		} else {
			logger.Debug("Wrote metrics textfile", zap.String("path", cfg.Metrics.Textfile))
		}
	}

	return nil
}

// newAnalyzer builds an analyzer with the options cfg describes
func newAnalyzer(logger *zap.Logger, cfg *config.Config) (*analyzer.Analyzer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := analyzer.DefaultOptions()
	opts.Policy = cfg.Policy()
	opts.Location = loc
	opts.Windows = cfg.Windows()

	return analyzer.New(logger, opts), nil
}

// output writes the report in the configured format
func output(stdout io.Writer, logger *zap.Logger, a *analyzer.Analyzer, cfg *config.Config, report *analyzer.Report) error {
	tty := isTerminal(stdout)

	chartOpts := chart.Options{
		Height: cfg.Output.Height,
		Width:  cfg.Output.Width,
		Color:  cfg.Output.Color && tty,
	}
	if chartOpts.Width == 0 {
		chartOpts.Width = terminalWidth(stdout)
	}

	switch cfg.Output.Format {
	case config.FormatJSON:
		if err := json.NewEncoder(stdout).Encode(report); err != nil {
			return err
		}
		return a.Render(report, chart.NewJSONRenderer(stdout))

	case config.FormatWindow:
		if err := report.WriteText(stdout); err != nil {
			return err
		}
		if !tty {
			logger.Warn("Standard output is not a terminal, drawing text charts instead of windows")
			return a.Render(report, chart.NewTextRenderer(stdout, chartOpts))
		}
		chartOpts.Color = cfg.Output.Color
		return a.Render(report, chart.NewWindowRenderer(chartOpts))

	default:
		if err := report.WriteText(stdout); err != nil {
			return err
		}
		if len(report.Windows) > 0 {
			fmt.Fprintln(stdout)
		}
		return a.Render(report, chart.NewTextRenderer(stdout, chartOpts))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && chart.IsTerminal(f)
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return chart.TerminalWidth(f, 80)
	}
	return 80
}
