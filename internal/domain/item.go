package domain

import "time"

// Source identifiers for collected items.
const (
	SourceGDELT   = "gdelt"
	SourceRSS     = "rss"
	SourceArxiv   = "arxiv"
	SourceYouTube = "youtube"
)

// Item is one discovered piece of content flowing through the pipeline.
// Fetchers create it; canonicalization and scoring enrich it in place.
type Item struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`

	// Derived during canonicalization.
	CanonicalURL string `json:"canonical_url,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	Domain       string `json:"domain,omitempty"`

	// Set by the scorer; zero until scored.
	Score float64 `json:"score"`
}

// Link returns the URL that should be shown to readers, preferring the
// canonical form when one has been derived.
func (i Item) Link() string {
	if i.CanonicalURL != "" {
		return i.CanonicalURL
	}
	return i.URL
}
