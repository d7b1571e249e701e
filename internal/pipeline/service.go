// Package pipeline orchestrates one batch run: collect, score, dedupe,
// rank, select, publish. Every stage is a transformation over the batch;
// the ledger is the only shared mutable state and is written exactly once
// per confirmed publish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/config"
	"horse.fit/agentwire/internal/domain"
	"horse.fit/agentwire/internal/globaltime"
	"horse.fit/agentwire/internal/langdetect"
	"horse.fit/agentwire/internal/ledger"
	"horse.fit/agentwire/internal/publish"
	"horse.fit/agentwire/internal/scoring"
	"horse.fit/agentwire/internal/source"
	"horse.fit/agentwire/internal/urlutil"
)

// Ledger is the dedup and confirmation surface the pipeline needs from the
// posting history.
type Ledger interface {
	Fingerprints(ctx context.Context) (map[string]struct{}, error)
	Record(ctx context.Context, item domain.Item, postedAt time.Time) error
}

// Publisher is the external posting channel.
type Publisher interface {
	CreateTweet(ctx context.Context, text string) (string, error)
	VerifyCredentials(ctx context.Context) (string, error)
}

// Summary is the per-stage count report for one run.
type Summary struct {
	Collected        int `json:"collected"`
	LanguageFiltered int `json:"language_filtered"`
	Relevant         int `json:"relevant"`
	AlreadyPosted    int `json:"already_posted"`
	Collapsed        int `json:"collapsed"`
	Unique           int `json:"unique"`
	Selected         int `json:"selected"`
	Posted           int `json:"posted"`
}

type Service struct {
	cfg       *config.Config
	scorer    *scoring.Scorer
	renderer  *publish.Renderer
	ledger    Ledger
	fetchers  []source.Fetcher
	publisher Publisher
	logger    zerolog.Logger
}

// NewService wires one run. publisher may be nil; it is only required for
// a live (non-dry-run, non-review) publish stage.
func NewService(
	cfg *config.Config,
	scorer *scoring.Scorer,
	renderer *publish.Renderer,
	ldg Ledger,
	fetchers []source.Fetcher,
	publisher Publisher,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		scorer:    scorer,
		renderer:  renderer,
		ledger:    ldg,
		fetchers:  fetchers,
		publisher: publisher,
		logger:    logger,
	}
}

// Run executes the full batch. The returned Summary is valid even when an
// error is returned: upstream stage counts are always populated, so a
// publish-stage failure still leaves the run observable.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	s.logger.Info().
		Bool("dry_run", s.cfg.DryRun).
		Bool("review_mode", s.cfg.ReviewMode).
		Int("lookback_hours", s.cfg.LookbackHours).
		Int("max_posts", s.cfg.MaxPostsPerRun).
		Float64("min_score", s.cfg.MinScoreThreshold).
		Msg("pipeline run starting")

	cutoff := globaltime.UTC().Add(-time.Duration(s.cfg.LookbackHours) * time.Hour)

	items := s.Collect(ctx, cutoff)
	summary.Collected = len(items)
	if len(items) == 0 {
		s.logger.Warn().Msg("no items collected from any source")
		s.logSummary(summary)
		return summary, nil
	}

	items = s.prepare(items, &summary)

	relevant := s.scoreAndFilter(items)
	summary.Relevant = len(relevant)
	if len(relevant) == 0 {
		s.logger.Info().Int("collected", summary.Collected).Msg("no items passed relevance filter")
		s.logSummary(summary)
		return summary, nil
	}

	postedSet, err := s.ledger.Fingerprints(ctx)
	if err != nil {
		return summary, fmt.Errorf("load posted fingerprints: %w", err)
	}

	deduped := Dedupe(relevant, postedSet)
	summary.AlreadyPosted = deduped.AlreadyPosted
	summary.Collapsed = deduped.Collapsed
	summary.Unique = len(deduped.Items)
	if deduped.AlreadyPosted > 0 {
		s.logger.Info().Int("count", deduped.AlreadyPosted).Msg("removed items already posted")
	}
	if deduped.Collapsed > 0 {
		s.logger.Info().Int("count", deduped.Collapsed).Msg("collapsed in-batch duplicates")
	}
	if len(deduped.Items) == 0 {
		s.logger.Info().Msg("all relevant items were duplicates")
		s.logSummary(summary)
		return summary, nil
	}

	selected := Select(Rank(deduped.Items), s.cfg.MaxPostsPerRun, s.cfg.MaxPostsPerDomain)
	summary.Selected = len(selected)
	if len(selected) == 0 {
		s.logger.Info().Msg("no items selected for posting")
		s.logSummary(summary)
		return summary, nil
	}

	err = s.publishSelected(ctx, selected, &summary)
	s.logSummary(summary)
	return summary, err
}

// Collect queries every fetcher sequentially. A failing fetcher loses only
// its own batch.
func (s *Service) Collect(ctx context.Context, cutoff time.Time) []domain.Item {
	var all []domain.Item
	for _, fetcher := range s.fetchers {
		batch, err := fetcher.Fetch(ctx, cutoff)
		if err != nil {
			s.logger.Error().Err(err).Str("source", fetcher.Name()).Msg("fetch failed")
			continue
		}
		s.logger.Info().Str("source", fetcher.Name()).Int("items", len(batch)).Msg("source fetched")
		all = append(all, batch...)
	}
	s.logger.Info().Int("total", len(all)).Msg("collection complete")
	return all
}

// prepare derives canonical URL, fingerprint and domain for every item and
// applies the optional English-only filter. Canonicalization failures are
// degraded, never fatal: the raw URL stands in as its own canonical form.
func (s *Service) prepare(items []domain.Item, summary *Summary) []domain.Item {
	prepared := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if s.cfg.EnglishOnly && !langdetect.IsEnglish(item.Title+" "+item.Description) {
			summary.LanguageFiltered++
			continue
		}

		canonical, err := urlutil.Canonicalize(item.URL)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", item.URL).Msg("url failed to canonicalize, using raw form")
		}
		item.CanonicalURL = canonical
		item.Fingerprint = urlutil.Fingerprint(item.CanonicalURL)
		item.Domain = urlutil.Host(item.CanonicalURL)
		prepared = append(prepared, item)
	}
	if summary.LanguageFiltered > 0 {
		s.logger.Info().Int("count", summary.LanguageFiltered).Msg("filtered non-english items")
	}
	return prepared
}

// ScoreAll exposes scoring over a prepared batch for the collect command.
func (s *Service) ScoreAll(items []domain.Item) []domain.Item {
	return s.scorer.ScoreAll(items)
}

// PrepareAll exposes canonicalization for the collect command.
func (s *Service) PrepareAll(items []domain.Item) []domain.Item {
	var summary Summary
	return s.prepare(items, &summary)
}

func (s *Service) scoreAndFilter(items []domain.Item) []domain.Item {
	s.scorer.ScoreAll(items)

	relevant := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if item.Score >= s.cfg.MinScoreThreshold {
			relevant = append(relevant, item)
		}
	}
	s.logger.Info().
		Int("passed", len(relevant)).
		Int("filtered", len(items)-len(relevant)).
		Float64("threshold", s.cfg.MinScoreThreshold).
		Msg("relevance filter applied")
	return relevant
}

// publishSelected renders and posts each selected item. The ledger is
// written only after a confirmed publish, one item at a time, so an
// interrupted run loses nothing but its unposted remainder.
func (s *Service) publishSelected(ctx context.Context, items []domain.Item, summary *Summary) error {
	if s.cfg.ReviewMode {
		s.reviewDrafts(items)
		return nil
	}
	if s.cfg.DryRun {
		s.logger.Info().Int("count", len(items)).Msg("dry-run: would post items, not posting")
		for i, item := range items {
			text := s.renderer.Render(item)
			s.logger.Info().
				Int("draft", i+1).
				Float64("score", item.Score).
				Str("tweet", text).
				Msg("dry-run draft")
		}
		return nil
	}

	if s.publisher == nil {
		return errors.New("posting credentials are not configured; collect/score/dedupe stages completed")
	}
	username, err := s.publisher.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("verify posting credentials: %w", err)
	}
	s.logger.Info().Str("username", username).Msg("posting credentials verified")

	for _, item := range items {
		text := s.renderer.Render(item)
		tweetID, err := s.publisher.CreateTweet(ctx, text)
		if err != nil {
			// One failed item never aborts the remainder of the batch.
			s.logger.Error().Err(err).Str("url", item.Link()).Msg("failed to post item")
			continue
		}

		if err := s.ledger.Record(ctx, item, globaltime.UTC()); err != nil {
			if errors.Is(err, ledger.ErrAlreadyRecorded) {
				s.logger.Warn().Str("fingerprint", item.Fingerprint).Msg("item was already recorded")
			} else {
				s.logger.Error().Err(err).Str("fingerprint", item.Fingerprint).Msg("failed to record posted item")
			}
		}

		summary.Posted++
		s.logger.Info().
			Str("tweet_id", tweetID).
			Int("posted", summary.Posted).
			Int("selected", len(items)).
			Msg("item posted")
	}
	return nil
}

func (s *Service) reviewDrafts(items []domain.Item) {
	for i, item := range items {
		text := s.renderer.Render(item)
		s.logger.Info().
			Int("draft", i+1).
			Int("total", len(items)).
			Str("title", item.Title).
			Str("url", item.Link()).
			Float64("score", item.Score).
			Int("length", len([]rune(text))).
			Str("tweet", text).
			Msg("review draft")
	}
	s.logger.Info().Int("count", len(items)).Msg("review mode: drafts rendered, nothing transmitted")
}

func (s *Service) logSummary(summary Summary) {
	s.logger.Info().
		Int("collected", summary.Collected).
		Int("language_filtered", summary.LanguageFiltered).
		Int("relevant", summary.Relevant).
		Int("already_posted", summary.AlreadyPosted).
		Int("collapsed", summary.Collapsed).
		Int("unique", summary.Unique).
		Int("selected", summary.Selected).
		Int("posted", summary.Posted).
		Msg("pipeline run complete")
}
