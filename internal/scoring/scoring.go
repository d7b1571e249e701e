// Package scoring classifies candidate items against dual-category keyword
// rules. An item must carry both an agent signal and a finance signal to
// score at all; a hard exclusion list overrides everything.
package scoring

import (
	"regexp"
	"strings"

	"horse.fit/agentwire/internal/domain"
	"horse.fit/agentwire/internal/globaltime"
)

const (
	// Recency contributions decay linearly to zero across this window and
	// are scaled down so they season the score instead of dominating it.
	recencyWindowHours = 24.0
	recencyDivisor     = 4.0

	// Fixed per-tier source bonuses.
	paperSourceBonus = 2.0
	premiumFeedBonus = 1.0
)

// Weights are the configured multipliers for each scoring signal.
type Weights struct {
	Agent   float64
	Finance float64
	Recency float64
}

// Scorer evaluates items against one compiled rule set. Scoring is a pure
// function of the item fields and the mocked clock.
type Scorer struct {
	agent   []*regexp.Regexp
	finance []*regexp.Regexp
	exclude []*regexp.Regexp
	premium map[string]struct{}
	weights Weights
}

func NewScorer(rules Rules, weights Weights) *Scorer {
	premium := make(map[string]struct{}, len(rules.PremiumDomains))
	for _, domainName := range rules.PremiumDomains {
		premium[strings.ToLower(strings.TrimSpace(domainName))] = struct{}{}
	}
	return &Scorer{
		agent:   compileKeywords(rules.AgentKeywords),
		finance: compileKeywords(rules.FinanceKeywords),
		exclude: compileKeywords(rules.ExcludeKeywords),
		premium: premium,
		weights: weights,
	}
}

// compileKeywords builds whole-word patterns so "agent" never matches
// inside "agentic" and each keyword counts at most once.
func compileKeywords(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, keyword := range keywords {
		trimmed := strings.ToLower(strings.TrimSpace(keyword))
		if trimmed == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(trimmed)+`\b`))
	}
	return patterns
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	matches := 0
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			matches++
		}
	}
	return matches
}

func anyMatch(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Score returns the relevance score for one item. Zero means the item is
// excluded outright or missing one of the two required signal categories.
func (s *Scorer) Score(item domain.Item) float64 {
	text := strings.ToLower(strings.TrimSpace(item.Title))
	if description := strings.TrimSpace(item.Description); description != "" {
		text += " " + strings.ToLower(description)
	}
	if text == "" {
		return 0
	}

	if anyMatch(text, s.exclude) {
		return 0
	}

	agentCount := countMatches(text, s.agent)
	financeCount := countMatches(text, s.finance)
	if agentCount == 0 || financeCount == 0 {
		return 0
	}

	// Multiplicative base reinforces the both-categories requirement.
	base := (float64(agentCount) * s.weights.Agent) * (float64(financeCount) * s.weights.Finance)

	hoursAgo := globaltime.UTC().Sub(item.PublishedAt.UTC()).Hours()
	recency := (recencyWindowHours - hoursAgo) * s.weights.Recency / recencyDivisor
	if recency < 0 {
		recency = 0
	}

	return base + recency + s.sourceBoost(item)
}

// sourceBoost grants flat per-tier bonuses: research papers always, feed
// items only when the domain is on the premium allowlist.
func (s *Scorer) sourceBoost(item domain.Item) float64 {
	switch item.Source {
	case domain.SourceArxiv:
		return paperSourceBonus
	case domain.SourceRSS:
		if _, ok := s.premium[strings.ToLower(item.Domain)]; ok {
			return premiumFeedBonus
		}
	}
	return 0
}

// ScoreAll scores every item in place and returns the slice for chaining.
func (s *Scorer) ScoreAll(items []domain.Item) []domain.Item {
	for i := range items {
		items[i].Score = s.Score(items[i])
	}
	return items
}
