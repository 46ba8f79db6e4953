package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/evanjt06/pagesim/cache"
	"github.com/evanjt06/pagesim/internal"
	"github.com/evanjt06/pagesim/sim"
	"go.uber.org/multierr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "pagesim:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) (err error) {
	flags := flag.NewFlagSet("pagesim", flag.ContinueOnError)
	configFile := flags.String("config", "", "path to a TOML configuration file")
	traceFile := flags.String("trace", "", "trace file (overrides trace_file)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := internal.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	if *traceFile != "" {
		cfg.TraceFile = *traceFile
	}

	policies := make([]cache.Policy, 0, len(cfg.Policies))
	for _, name := range cfg.Policies {
		policy, err := cache.ParsePolicy(name)
		if err != nil {
			return err
		}
		policies = append(policies, policy)
	}

	logger, closeLogger, err := internal.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() {
		err = multierr.Append(err, closeLogger())
	}()

	records, err := sim.LoadTrace(cfg.TraceFile)
	if err != nil {
		return err
	}
	logger.Infow("Loaded trace", "path", cfg.TraceFile, "records", len(records))

	runner := &sim.Runner{Index: cfg.Index, TrendAge: cfg.TrendAge, Logger: logger}
	results, err := runner.Sweep(ctx, records, policies, cfg.Capacities())
	if err != nil {
		return err
	}

	if err := sim.WriteTable(stdout, results); err != nil {
		return err
	}
	if cfg.ResultsFile != "" {
		out := &sim.ResultsLog{Path: cfg.ResultsFile, Logger: logger}
		return out.Append(results...)
	}
	return nil
}
