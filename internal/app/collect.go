package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/agentwire/internal/cli"
	"horse.fit/agentwire/internal/globaltime"
	"horse.fit/agentwire/internal/logging"
	"horse.fit/agentwire/internal/pipeline"
	"horse.fit/agentwire/internal/publish"
)

// collect fetches and scores candidates without opening the database, so
// rule and feed changes can be inspected before a real run.
func runCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	limit := fs.Int("limit", 25, "Maximum number of candidates to print")
	all := fs.Bool("all", false, "Include candidates below the score threshold")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "collect does not accept positional arguments")
		return 2
	}
	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 1")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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

	scorer, err := buildScorer(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := pipeline.NewService(cfg, scorer, publish.NewRenderer(), nil, buildFetchers(cfg, logger), nil, logger)

	cutoff := globaltime.UTC().Add(-time.Duration(cfg.LookbackHours) * time.Hour)
	items := svc.ScoreAll(svc.PrepareAll(svc.Collect(ctx, cutoff)))

	ranked := pipeline.Rank(items)
	if !*all {
		kept := ranked[:0]
		for _, item := range ranked {
			if item.Score >= cfg.MinScoreThreshold {
				kept = append(kept, item)
			}
		}
		ranked = kept
	}
	if len(ranked) > *limit {
		ranked = ranked[:*limit]
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(ranked); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(ranked))
	for _, item := range ranked {
		rows = append(rows, []string{
			fmt.Sprintf("%.2f", item.Score),
			item.Source,
			item.Domain,
			formatUTCTimestamp(item.PublishedAt),
			truncateForTable(item.Title, 70),
		})
	}
	if err := writeTable([]string{"score", "source", "domain", "published_at", "title"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	fmt.Printf("\n%d candidate(s)\n", len(ranked))
	return 0
}
