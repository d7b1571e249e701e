package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testRSSDocument = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>AI agents land in underwriting</title>
      <link>https://feed.example.com/underwriting</link>
      <description><![CDATA[<p>Insurers adopt <b>agentic</b> workflows.</p>]]></description>
      <pubDate>Tue, 10 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Ancient story</title>
      <link>https://feed.example.com/old</link>
      <pubDate>Sun, 01 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>No link entry</title>
      <pubDate>Tue, 10 Mar 2026 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestRSSFetch_ParsesFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testRSSDocument))
	}))
	t.Cleanup(server.Close)

	fetcher := NewRSSFetcher([]string{server.URL}, zerolog.Nop())
	cutoff := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	items, err := fetcher.Fetch(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(items))
	}
	item := items[0]
	if item.Title != "AI agents land in underwriting" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.Description != "Insurers adopt agentic workflows." {
		t.Fatalf("description should be stripped of HTML, got %q", item.Description)
	}
	if item.URL != "https://feed.example.com/underwriting" {
		t.Fatalf("unexpected url: %q", item.URL)
	}
}

func TestRSSFetch_NoFeedsConfigured(t *testing.T) {
	fetcher := NewRSSFetcher(nil, zerolog.Nop())
	items, err := fetcher.Fetch(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil batch, got %d items", len(items))
	}
}

func TestRSSFetch_OneBrokenFeedLosesOnlyItself(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testRSSDocument))
	}))
	t.Cleanup(good.Close)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	fetcher := NewRSSFetcher([]string{broken.URL, good.URL}, zerolog.Nop())
	cutoff := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	items, err := fetcher.Fetch(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("the healthy feed should still contribute, got %d items", len(items))
	}
}
