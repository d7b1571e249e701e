package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"AW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"AW_DB_MAX_CONNS" default:"4"`

	// X (Twitter) API credentials. Required only for live posting; a
	// dry-run or review run never touches them.
	XAPIKey       string `envconfig:"X_API_KEY" default:""`
	XAPISecret    string `envconfig:"X_API_SECRET" default:""`
	XAccessToken  string `envconfig:"X_ACCESS_TOKEN" default:""`
	XAccessSecret string `envconfig:"X_ACCESS_SECRET" default:""`

	YouTubeAPIKey  string `envconfig:"YOUTUBE_API_KEY" default:""`
	YouTubeQueries string `envconfig:"YOUTUBE_QUERIES" default:"AI agents finance,autonomous agents banking,LLM agents fintech,agentic AI insurance"`

	RSSFeeds string `envconfig:"RSS_FEEDS" default:""`

	ArxivQueries    string `envconfig:"ARXIV_QUERIES" default:"artificial intelligence finance,autonomous agents trading"`
	ArxivMaxResults int    `envconfig:"ARXIV_MAX_RESULTS" default:"25"`

	GDELTMode       string `envconfig:"GDELT_MODE" default:"ArtList"`
	GDELTMaxRecords int    `envconfig:"GDELT_MAX_RECORDS" default:"250"`

	DryRun            bool    `envconfig:"DRY_RUN" default:"true"`
	ReviewMode        bool    `envconfig:"REVIEW_MODE" default:"false"`
	LookbackHours     int     `envconfig:"LOOKBACK_HOURS" default:"24"`
	MaxPostsPerRun    int     `envconfig:"MAX_POSTS_PER_RUN" default:"5"`
	MaxPostsPerDomain int     `envconfig:"MAX_POSTS_PER_DOMAIN" default:"1"`
	MinScoreThreshold float64 `envconfig:"MIN_SCORE_THRESHOLD" default:"5.0"`

	AgentKeywordWeight   float64 `envconfig:"AGENT_KEYWORD_WEIGHT" default:"1.0"`
	FinanceKeywordWeight float64 `envconfig:"FINANCE_KEYWORD_WEIGHT" default:"1.0"`
	RecencyWeight        float64 `envconfig:"RECENCY_WEIGHT" default:"0.5"`

	// Optional JSON file overriding the built-in keyword rule sets.
	RulesFile string `envconfig:"RULES_FILE" default:""`

	// Skip items whose title+description is not detected as English.
	EnglishOnly bool `envconfig:"ENGLISH_ONLY" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("AW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("AW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("AW_DB_MIN_CONNS (%d) cannot exceed AW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.LookbackHours < 1 || c.LookbackHours > 168 {
		return fmt.Errorf("LOOKBACK_HOURS must be between 1 and 168")
	}
	if c.MaxPostsPerRun < 1 || c.MaxPostsPerRun > 20 {
		return fmt.Errorf("MAX_POSTS_PER_RUN must be between 1 and 20")
	}
	if c.MaxPostsPerDomain < 1 || c.MaxPostsPerDomain > 10 {
		return fmt.Errorf("MAX_POSTS_PER_DOMAIN must be between 1 and 10")
	}
	if c.MinScoreThreshold < 0 {
		return fmt.Errorf("MIN_SCORE_THRESHOLD must be >= 0")
	}
	if c.AgentKeywordWeight < 0 || c.FinanceKeywordWeight < 0 || c.RecencyWeight < 0 {
		return fmt.Errorf("scoring weights must be >= 0")
	}
	if c.ArxivMaxResults < 1 || c.ArxivMaxResults > 100 {
		return fmt.Errorf("ARXIV_MAX_RESULTS must be between 1 and 100")
	}
	if c.GDELTMaxRecords < 1 || c.GDELTMaxRecords > 500 {
		return fmt.Errorf("GDELT_MAX_RECORDS must be between 1 and 500")
	}
	return nil
}

// HasXCredentials reports whether all four X API credentials are set.
func (c *Config) HasXCredentials() bool {
	return strings.TrimSpace(c.XAPIKey) != "" &&
		strings.TrimSpace(c.XAPISecret) != "" &&
		strings.TrimSpace(c.XAccessToken) != "" &&
		strings.TrimSpace(c.XAccessSecret) != ""
}

func (c *Config) YouTubeQueryList() []string {
	return splitCommaList(c.YouTubeQueries)
}

func (c *Config) RSSFeedList() []string {
	return splitCommaList(c.RSSFeeds)
}

func (c *Config) ArxivQueryList() []string {
	return splitCommaList(c.ArxivQueries)
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
