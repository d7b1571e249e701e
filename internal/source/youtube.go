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
)

const (
	defaultYouTubeBaseURL     = "https://www.googleapis.com/youtube/v3/search"
	youtubeMaxResultsPerQuery = 10
	youtubePublishedAtLayout  = "2006-01-02T15:04:05Z"
)

// YouTubeFetcher searches the YouTube Data API v3 for recent videos.
type YouTubeFetcher struct {
	client  *http.Client
	logger  zerolog.Logger
	baseURL string
	apiKey  string
	queries []string
}

func NewYouTubeFetcher(apiKey string, queries []string, logger zerolog.Logger) *YouTubeFetcher {
	return &YouTubeFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		baseURL: defaultYouTubeBaseURL,
		apiKey:  apiKey,
		queries: queries,
	}
}

func (f *YouTubeFetcher) Name() string { return domain.SourceYouTube }

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

func (f *YouTubeFetcher) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Item, error) {
	if strings.TrimSpace(f.apiKey) == "" {
		f.logger.Info().Msg("no youtube api key configured, skipping youtube fetch")
		return nil, nil
	}
	if len(f.queries) == 0 {
		f.logger.Info().Msg("no youtube queries configured, skipping youtube fetch")
		return nil, nil
	}

	var items []domain.Item
	for _, query := range f.queries {
		batch, quotaExhausted := f.searchQuery(ctx, query, cutoff)
		items = append(items, batch...)
		if quotaExhausted {
			// No point burning the remaining queries against a spent quota.
			break
		}
	}

	f.logger.Info().Int("videos", len(items)).Msg("youtube fetch complete")
	return items, nil
}

func (f *YouTubeFetcher) searchQuery(ctx context.Context, query string, cutoff time.Time) ([]domain.Item, bool) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("part", "id,snippet")
	params.Set("publishedAfter", cutoff.UTC().Format(youtubePublishedAtLayout))
	params.Set("order", "date")
	params.Set("maxResults", strconv.Itoa(youtubeMaxResultsPerQuery))
	params.Set("key", f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		f.logger.Error().Err(err).Str("query", query).Msg("build youtube request")
		return nil, false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error().Err(err).Str("query", query).Msg("youtube request failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		f.logger.Error().Str("query", query).Msg("youtube quota exceeded or permission denied")
		return nil, true
	}
	if resp.StatusCode != http.StatusOK {
		f.logger.Error().Int("status", resp.StatusCode).Str("query", query).Msg("youtube returned non-200 status")
		return nil, false
	}

	var payload youtubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		f.logger.Error().Err(err).Str("query", query).Msg("decode youtube response")
		return nil, false
	}

	items := make([]domain.Item, 0, len(payload.Items))
	for _, video := range payload.Items {
		if video.ID.VideoID == "" {
			continue
		}

		publishedAt, err := time.Parse(youtubePublishedAtLayout, video.Snippet.PublishedAt)
		if err != nil {
			f.logger.Warn().Str("published_at", video.Snippet.PublishedAt).Msg("unparseable youtube timestamp, dropping entry")
			continue
		}
		if publishedAt.Before(cutoff) {
			continue
		}

		title := strings.TrimSpace(video.Snippet.Title)
		if title == "" {
			title = "Untitled"
		}

		items = append(items, domain.Item{
			Source:      domain.SourceYouTube,
			Title:       title,
			Description: video.Snippet.Description,
			URL:         fmt.Sprintf("https://www.youtube.com/watch?v=%s", video.ID.VideoID),
			PublishedAt: publishedAt.UTC(),
		})
	}

	f.logger.Info().Str("query", query).Int("kept", len(items)).Msg("youtube query complete")
	return items, false
}

// SetBaseURL points the fetcher at a test server.
func (f *YouTubeFetcher) SetBaseURL(raw string) { f.baseURL = raw }
