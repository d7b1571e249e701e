package source

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/domain"
	"horse.fit/agentwire/internal/globaltime"
)

// RSSFetcher pulls entries from a configured list of RSS/Atom feeds.
type RSSFetcher struct {
	parser *gofeed.Parser
	logger zerolog.Logger
	feeds  []string
}

func NewRSSFetcher(feeds []string, logger zerolog.Logger) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "agentwire/1.0"
	return &RSSFetcher{
		parser: parser,
		logger: logger,
		feeds:  feeds,
	}
}

func (f *RSSFetcher) Name() string { return domain.SourceRSS }

func (f *RSSFetcher) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Item, error) {
	if len(f.feeds) == 0 {
		f.logger.Info().Msg("no rss feeds configured, skipping rss fetch")
		return nil, nil
	}

	var items []domain.Item
	for _, feedURL := range f.feeds {
		items = append(items, f.fetchFeed(ctx, feedURL, cutoff)...)
	}

	f.logger.Info().Int("items", len(items)).Int("feeds", len(f.feeds)).Msg("rss fetch complete")
	return items, nil
}

func (f *RSSFetcher) fetchFeed(ctx context.Context, feedURL string, cutoff time.Time) []domain.Item {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		f.logger.Error().Err(err).Str("feed", feedURL).Msg("rss fetch failed")
		return nil
	}

	items := make([]domain.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		link := strings.TrimSpace(entry.Link)
		if link == "" {
			continue
		}

		publishedAt := entryTime(entry)
		if publishedAt.Before(cutoff) {
			continue
		}

		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = "Untitled"
		}

		description := entry.Description
		if description == "" {
			description = entry.Content
		}

		items = append(items, domain.Item{
			Source:      domain.SourceRSS,
			Title:       title,
			Description: StripHTML(description),
			URL:         link,
			PublishedAt: publishedAt,
		})
	}

	f.logger.Info().Str("feed", feedURL).Int("entries", len(feed.Items)).Int("kept", len(items)).Msg("rss feed parsed")
	return items
}

// entryTime prefers the published timestamp, falls back to updated, and
// uses the current clock when a feed carries no usable date at all.
func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return globaltime.UTC()
}
