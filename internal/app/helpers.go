package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/cli"
	"horse.fit/agentwire/internal/config"
	"horse.fit/agentwire/internal/db"
	"horse.fit/agentwire/internal/ledger"
	"horse.fit/agentwire/internal/pipeline"
	"horse.fit/agentwire/internal/publish"
	"horse.fit/agentwire/internal/scoring"
	"horse.fit/agentwire/internal/source"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func truncateForTable(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if maxLen <= 0 {
		return trimmed
	}
	if utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}

	runes := []rune(trimmed)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func formatUTCTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func connectPool(timeout time.Duration, envLoader *cli.EnvLoader) (context.Context, context.CancelFunc, *config.Config, *db.Pool, error) {
	cfg, err := loadConfig(envLoader)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return ctx, cancel, cfg, pool, nil
}

func buildScorer(cfg *config.Config) (*scoring.Scorer, error) {
	rules := scoring.DefaultRules()
	if strings.TrimSpace(cfg.RulesFile) != "" {
		loaded, err := scoring.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules file: %w", err)
		}
		rules = loaded
	}

	weights := scoring.Weights{
		Agent:   cfg.AgentKeywordWeight,
		Finance: cfg.FinanceKeywordWeight,
		Recency: cfg.RecencyWeight,
	}
	return scoring.NewScorer(rules, weights), nil
}

func buildFetchers(cfg *config.Config, logger zerolog.Logger) []source.Fetcher {
	fetchers := []source.Fetcher{
		source.NewGDELTFetcher(cfg.GDELTMode, cfg.GDELTMaxRecords, logger),
	}
	if feeds := cfg.RSSFeedList(); len(feeds) > 0 {
		fetchers = append(fetchers, source.NewRSSFetcher(feeds, logger))
	}
	if queries := cfg.ArxivQueryList(); len(queries) > 0 {
		fetchers = append(fetchers, source.NewArxivFetcher(queries, cfg.ArxivMaxResults, logger))
	}
	if strings.TrimSpace(cfg.YouTubeAPIKey) != "" {
		fetchers = append(fetchers, source.NewYouTubeFetcher(cfg.YouTubeAPIKey, cfg.YouTubeQueryList(), logger))
	}
	return fetchers
}

func buildService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*pipeline.Service, error) {
	scorer, err := buildScorer(cfg)
	if err != nil {
		return nil, err
	}

	var publisher pipeline.Publisher
	if !cfg.DryRun && !cfg.ReviewMode {
		if !cfg.HasXCredentials() {
			return nil, fmt.Errorf("live posting requires X_API_KEY, X_API_SECRET, X_ACCESS_TOKEN and X_ACCESS_SECRET")
		}
		publisher = publish.NewXClient(cfg.XAPIKey, cfg.XAPISecret, cfg.XAccessToken, cfg.XAccessSecret, logger)
	}

	ldg := ledger.New(pool, logger)
	return pipeline.NewService(cfg, scorer, publish.NewRenderer(), ldg, buildFetchers(cfg, logger), publisher, logger), nil
}
