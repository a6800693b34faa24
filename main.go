package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"shotbench/benchmark"
	"shotbench/config"
	"shotbench/report"
	"shotbench/worker"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	runs        int
	verbose     bool
	globals     []string
	configFile  string
	level       string
	noLog       bool
	summary     bool
	pushgateway string
	influx      config.InfluxConfig
}

// Prepare zerolog
func setupLogging(disableLog bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var zlevel zerolog.Level
	if disableLog {
		zlevel = zerolog.Disabled
	} else if level == "info" {
		zlevel = zerolog.InfoLevel
	} else {
		zlevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(zlevel)

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano})
	}
}

// Loads the configuration: defaults, then the config file, then the overrides and flags.
func buildConfig(opts *options, out io.Writer) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Override(opts.globals, out); err != nil {
		return nil, err
	}

	if opts.pushgateway != "" {
		cfg.Report.Pushgateway = opts.pushgateway
	}
	if opts.influx.URL != "" {
		cfg.Report.Influx.URL = opts.influx.URL
	}
	if opts.influx.Token != "" {
		cfg.Report.Influx.Token = opts.influx.Token
	}
	if opts.influx.Org != "" {
		cfg.Report.Influx.Org = opts.influx.Org
	}
	if opts.influx.Bucket != "" {
		cfg.Report.Influx.Bucket = opts.influx.Bucket
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, name string, opts *options, out io.Writer) error {
	if opts.runs < 1 {
		return fmt.Errorf("--runs must be at least 1, got %d", opts.runs)
	}
	scenario, err := benchmark.Lookup(name)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(opts, out)
	if err != nil {
		return err
	}

	testOut := io.Discard
	if opts.verbose {
		testOut = out
	}
	b := scenario.New(cfg, testOut)
	runner := &worker.Runner{Verbose: opts.verbose, Out: out}

	report.Running(out, name)
	zlog.Info().Str("test", name).Int("runs", opts.runs).Str("mode", string(cfg.ResultMode)).Msg("Run started")
	result, err := runner.Run(ctx, b.Setup, opts.runs, b.Test)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	zlog.Info().Str("test", name).Float64("total", result.Total).Msg("Run ended")

	report.Average(out, name, result)
	if opts.summary {
		report.Summary(out, name, cfg.ResultMode, result)
	}
	if cfg.Report.Pushgateway != "" {
		if err := report.Push(ctx, cfg.Report.Pushgateway, name, result); err != nil {
			return err
		}
	}
	if cfg.Report.Influx.URL != "" {
		if err := report.WriteInflux(ctx, cfg.Report.Influx, name, cfg.ResultMode, result); err != nil {
			return err
		}
	}
	return nil
}

// One line per registered test, for the help text
func testList() string {
	var b strings.Builder
	b.WriteString("Tests:\n")
	for _, name := range benchmark.Names() {
		s, _ := benchmark.Lookup(name)
		fmt.Fprintf(&b, "  %-10s %s\n", s.Name, s.Description)
	}
	return b.String()
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "shotbench <test>",
		Short:         "Times shot queries through the ftrack API, an ORM and raw SQL",
		Long:          "Runs the named test the given number of times and prints the average time of a run.\n\n" + testList(),
		ValidArgs:     benchmark.Names(),
		Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(opts.noLog, opts.level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], opts, out)
		},
	}
	cmd.SetOut(out)

	flags := cmd.Flags()
	flags.IntVarP(&opts.runs, "runs", "r", 1, "Number of times to run the test")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print the time of each step")
	flags.StringArrayVarP(&opts.globals, "globals", "g", nil,
		"Override a configuration entry, KEY=value (keys: "+strings.Join(config.Keys(), ", ")+")")
	flags.StringVar(&opts.configFile, "conf", "", "Config file (yaml)")
	flags.StringVar(&opts.level, "level", "debug", "Log level (info|debug)")
	flags.BoolVar(&opts.noLog, "no-log", false, "Disables the log")
	flags.BoolVar(&opts.summary, "summary", false, "Print a csv and key-value summary of the run times")
	flags.StringVar(&opts.pushgateway, "pushgateway", "", "Prometheus Pushgateway URL")
	flags.StringVar(&opts.influx.URL, "influx-url", "", "InfluxDB URL")
	flags.StringVar(&opts.influx.Token, "influx-token", "", "InfluxDB token")
	flags.StringVar(&opts.influx.Org, "influx-org", "", "InfluxDB organization")
	flags.StringVar(&opts.influx.Bucket, "influx-bucket", "", "InfluxDB bucket")

	return cmd
}

func main() {
	if err := newRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		zlog.Error().Err(err).Msg("Run failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
