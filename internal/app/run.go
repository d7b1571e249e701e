package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/agentwire/internal/cli"
	"horse.fit/agentwire/internal/db"
	"horse.fit/agentwire/internal/logging"
)

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	dryRun := fs.Bool("dry-run", false, "Force dry-run mode regardless of DRY_RUN")
	live := fs.Bool("live", false, "Force live posting regardless of DRY_RUN")
	review := fs.Bool("review", false, "Render drafts to the log without posting or recording")
	maxPosts := fs.Int("max-posts", 0, "Override MAX_POSTS_PER_RUN (0 keeps the configured value)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run does not accept positional arguments")
		return 2
	}
	if *dryRun && *live {
		fmt.Fprintln(os.Stderr, "--dry-run and --live are mutually exclusive")
		return 2
	}

	cfg, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *live {
		cfg.DryRun = false
	}
	if *review {
		cfg.ReviewMode = true
	}
	if *maxPosts > 0 {
		cfg.MaxPostsPerRun = *maxPosts
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --max-posts: %v\n", err)
			return 2
		}
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	svc, err := buildService(cfg, pool, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		return 1
	}

	summary, err := svc.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	fmt.Printf("collected=%d relevant=%d unique=%d selected=%d posted=%d\n",
		summary.Collected, summary.Relevant, summary.Unique, summary.Selected, summary.Posted)
	return 0
}
