package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/agentwire/internal/domain"
	"horse.fit/agentwire/internal/globaltime"
)

const (
	defaultGDELTBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"
	gdeltSeendateLayout = "20060102T150405Z"

	// Broad on purpose; the scorer does the precision work downstream.
	gdeltQuery = "(agent OR agents OR agentic OR autonomous) AND (finance OR fintech OR insurance OR insurtech OR banking)"
)

// GDELTFetcher pulls articles from the GDELT DOC 2.0 API.
type GDELTFetcher struct {
	client     *http.Client
	logger     zerolog.Logger
	baseURL    string
	mode       string
	maxRecords int
}

func NewGDELTFetcher(mode string, maxRecords int, logger zerolog.Logger) *GDELTFetcher {
	if strings.TrimSpace(mode) == "" {
		mode = "ArtList"
	}
	return &GDELTFetcher{
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		baseURL:    defaultGDELTBaseURL,
		mode:       mode,
		maxRecords: maxRecords,
	}
}

func (f *GDELTFetcher) Name() string { return domain.SourceGDELT }

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	URL             string `json:"url"`
	Title           string `json:"title"`
	SeenDate        string `json:"seendate"`
	SeenDescription string `json:"seendescription"`
}

func (f *GDELTFetcher) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Item, error) {
	timespan := gdeltTimespan(cutoff)

	params := url.Values{}
	params.Set("query", gdeltQuery)
	params.Set("mode", f.mode)
	params.Set("maxrecords", strconv.Itoa(f.maxRecords))
	params.Set("timespan", timespan)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build gdelt request: %w", err)
	}

	f.logger.Info().Str("timespan", timespan).Int("max_records", f.maxRecords).Msg("fetching gdelt articles")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error().Err(err).Msg("gdelt request failed")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Error().Int("status", resp.StatusCode).Msg("gdelt returned non-200 status")
		return nil, nil
	}

	var payload gdeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		f.logger.Error().Err(err).Msg("decode gdelt response")
		return nil, nil
	}

	items := make([]domain.Item, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		if strings.TrimSpace(article.URL) == "" {
			continue
		}

		publishedAt := globaltime.UTC()
		if article.SeenDate != "" {
			parsed, err := time.Parse(gdeltSeendateLayout, article.SeenDate)
			if err != nil {
				f.logger.Warn().Str("seendate", article.SeenDate).Msg("unparseable gdelt seendate, dropping entry")
				continue
			}
			publishedAt = parsed.UTC()
		}
		if publishedAt.Before(cutoff) {
			continue
		}

		title := strings.TrimSpace(article.Title)
		if title == "" {
			title = "Untitled"
		}
		items = append(items, domain.Item{
			Source:      domain.SourceGDELT,
			Title:       title,
			Description: StripHTML(article.SeenDescription),
			URL:         article.URL,
			PublishedAt: publishedAt,
		})
	}

	f.logger.Info().Int("fetched", len(payload.Articles)).Int("kept", len(items)).Msg("gdelt fetch complete")
	return items, nil
}

// gdeltTimespan renders the cutoff as a GDELT timespan token ("6h", "3d").
func gdeltTimespan(cutoff time.Time) string {
	hours := int(globaltime.UTC().Sub(cutoff).Hours())
	if hours < 1 {
		hours = 1
	}
	if hours <= 24 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dd", hours/24)
}

// SetBaseURL points the fetcher at a test server.
func (f *GDELTFetcher) SetBaseURL(raw string) { f.baseURL = raw }
