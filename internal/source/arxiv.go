package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/domain"
)

const defaultArxivBaseURL = "http://export.arxiv.org/api/query"

// ArxivFetcher searches the arXiv Atom API for recent papers. The API
// serves an ordinary Atom feed, so gofeed parses it directly.
type ArxivFetcher struct {
	parser     *gofeed.Parser
	logger     zerolog.Logger
	baseURL    string
	queries    []string
	maxResults int
}

func NewArxivFetcher(queries []string, maxResults int, logger zerolog.Logger) *ArxivFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = "agentwire/1.0"
	return &ArxivFetcher{
		parser:     parser,
		logger:     logger,
		baseURL:    defaultArxivBaseURL,
		queries:    queries,
		maxResults: maxResults,
	}
}

func (f *ArxivFetcher) Name() string { return domain.SourceArxiv }

func (f *ArxivFetcher) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Item, error) {
	if len(f.queries) == 0 {
		f.logger.Info().Msg("no arxiv queries configured, skipping arxiv fetch")
		return nil, nil
	}

	var items []domain.Item
	for _, query := range f.queries {
		items = append(items, f.fetchQuery(ctx, query, cutoff)...)
	}

	f.logger.Info().Int("papers", len(items)).Msg("arxiv fetch complete")
	return items, nil
}

func (f *ArxivFetcher) fetchQuery(ctx context.Context, query string, cutoff time.Time) []domain.Item {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(f.maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	feed, err := f.parser.ParseURLWithContext(f.baseURL+"?"+params.Encode(), ctx)
	if err != nil {
		f.logger.Error().Err(err).Str("query", query).Msg("arxiv fetch failed")
		return nil
	}

	items := make([]domain.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		link := strings.TrimSpace(entry.Link)
		if link == "" {
			continue
		}
		if entry.PublishedParsed == nil {
			continue
		}
		publishedAt := entry.PublishedParsed.UTC()
		if publishedAt.Before(cutoff) {
			continue
		}

		title := strings.Join(strings.Fields(entry.Title), " ")
		abstract := strings.Join(strings.Fields(entry.Description), " ")
		if len(abstract) > 300 {
			abstract = abstract[:300] + "..."
		}

		items = append(items, domain.Item{
			Source:      domain.SourceArxiv,
			Title:       title,
			Description: fmt.Sprintf("[arXiv Paper] %s — %s", authorLine(entry), abstract),
			URL:         link,
			PublishedAt: publishedAt,
		})
	}

	f.logger.Info().Str("query", query).Int("entries", len(feed.Items)).Int("kept", len(items)).Msg("arxiv query parsed")
	return items
}

// authorLine lists at most three authors, appending "et al." beyond that.
func authorLine(entry *gofeed.Item) string {
	names := make([]string, 0, 3)
	for _, author := range entry.Authors {
		if author == nil || strings.TrimSpace(author.Name) == "" {
			continue
		}
		names = append(names, strings.TrimSpace(author.Name))
		if len(names) == 3 {
			break
		}
	}
	line := strings.Join(names, ", ")
	if len(entry.Authors) > 3 {
		line += " et al."
	}
	return line
}

// SetBaseURL points the fetcher at a test server.
func (f *ArxivFetcher) SetBaseURL(raw string) { f.baseURL = raw }
