package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"horse.fit/agentwire/internal/cli"
	"horse.fit/agentwire/internal/ledger"
	"horse.fit/agentwire/internal/logging"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	recent := fs.Int("recent", 0, "Also list the N most recently posted items")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}
	if *recent < 0 {
		fmt.Fprintln(os.Stderr, "--recent must be >= 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ldg := ledger.New(pool, logger)
	stats, err := ldg.QueryStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query ledger stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		payload := map[string]any{"stats": stats}
		if *recent > 0 {
			items, err := ldg.Recent(ctx, *recent)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to query recent posts: %v\n", err)
				return 1
			}
			payload["recent"] = items
		}
		if err := printJSON(payload); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	sources := make([]string, 0, len(stats.BySource))
	for name := range stats.BySource {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	rows := make([][]string, 0, len(sources)+2)
	for _, name := range sources {
		rows = append(rows, []string{name, fmt.Sprintf("%d", stats.BySource[name])})
	}
	rows = append(rows, []string{"TOTAL", fmt.Sprintf("%d", stats.TotalPosted)})
	rows = append(rows, []string{"last_7_days", fmt.Sprintf("%d", stats.Last7Days)})

	if err := writeTable([]string{"source", "posted"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	if *recent > 0 {
		items, err := ldg.Recent(ctx, *recent)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to query recent posts: %v\n", err)
			return 1
		}

		fmt.Println()
		recentRows := make([][]string, 0, len(items))
		for _, item := range items {
			recentRows = append(recentRows, []string{
				formatUTCTimestamp(item.PostedAt),
				item.Source,
				fmt.Sprintf("%.2f", item.RelevanceScore),
				truncateForTable(item.Title, 60),
			})
		}
		if err := writeTable([]string{"posted_at", "source", "score", "title"}, recentRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render recent table: %v\n", err)
			return 1
		}
	}

	return 0
}
