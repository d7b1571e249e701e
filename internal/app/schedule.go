package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"horse.fit/agentwire/internal/cli"
	"horse.fit/agentwire/internal/db"
	"horse.fit/agentwire/internal/logging"
)

// schedule keeps the process alive and runs the pipeline on a cron
// expression. A tick that fires while the previous run is still in flight
// is skipped, not queued.
func runSchedule(args []string) int {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	spec := fs.String("cron", "@hourly", "Cron expression for pipeline runs")
	runTimeout := fs.Duration("run-timeout", 5*time.Minute, "Timeout for each pipeline run")
	immediate := fs.Bool("immediate", false, "Run once immediately before waiting for the first tick")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "schedule does not accept positional arguments")
		return 2
	}

	cfg, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	var running atomic.Bool
	tick := func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn().Msg("previous run still in progress, skipping tick")
			return
		}
		defer running.Store(false)

		runCtx, runCancel := context.WithTimeout(ctx, *runTimeout)
		defer runCancel()

		// Each run gets a fresh pool so a dead connection never wedges
		// the scheduler.
		pool, err := db.NewPool(runCtx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled run failed to connect to database")
			return
		}
		defer pool.Close()

		svc, err := buildService(cfg, pool, logger)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled run failed to build pipeline")
			return
		}
		if _, err := svc.Run(runCtx); err != nil {
			logger.Error().Err(err).Msg("scheduled run failed")
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*spec, tick); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --cron expression: %v\n", err)
		return 2
	}

	logger.Info().Str("cron", *spec).Bool("dry_run", cfg.DryRun).Msg("scheduler started")
	scheduler.Start()

	if *immediate {
		go tick()
	}

	<-ctx.Done()

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(*runTimeout):
		logger.Warn().Msg("scheduler stop timed out")
	}

	logger.Info().Msg("scheduler stopped")
	return 0
}
