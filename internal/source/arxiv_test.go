package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testArxivDocument = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query Results</title>
  <entry>
    <id>http://arxiv.org/abs/2603.01234v1</id>
    <title>Multi-Agent  Systems for
	  Portfolio Risk</title>
    <link href="http://arxiv.org/abs/2603.01234v1" rel="alternate" type="text/html"/>
    <summary>We present a framework for autonomous trading agents operating under risk constraints.</summary>
    <published>2026-03-10T08:00:00Z</published>
    <updated>2026-03-10T08:00:00Z</updated>
    <author><name>Ada One</name></author>
    <author><name>Ben Two</name></author>
    <author><name>Cy Three</name></author>
    <author><name>Dee Four</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2602.00001v1</id>
    <title>Stale paper</title>
    <link href="http://arxiv.org/abs/2602.00001v1" rel="alternate" type="text/html"/>
    <summary>Old.</summary>
    <published>2026-02-01T08:00:00Z</published>
    <updated>2026-02-01T08:00:00Z</updated>
    <author><name>Old Author</name></author>
  </entry>
</feed>`

func TestArxivFetch_ParsesAtomFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if got := query.Get("search_query"); !strings.HasPrefix(got, "all:") {
			t.Errorf("expected all: prefix in search query, got %q", got)
		}
		if got := query.Get("sortBy"); got != "submittedDate" {
			t.Errorf("unexpected sortBy: %q", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(testArxivDocument))
	}))
	t.Cleanup(server.Close)

	fetcher := NewArxivFetcher([]string{"autonomous agents trading"}, 25, zerolog.Nop())
	fetcher.SetBaseURL(server.URL)

	cutoff := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	items, err := fetcher.Fetch(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 recent paper, got %d", len(items))
	}

	item := items[0]
	if item.Title != "Multi-Agent Systems for Portfolio Risk" {
		t.Fatalf("title whitespace should be collapsed, got %q", item.Title)
	}
	if !strings.HasPrefix(item.Description, "[arXiv Paper] ") {
		t.Fatalf("expected paper marker prefix, got %q", item.Description)
	}
	if !strings.Contains(item.Description, "Ada One, Ben Two, Cy Three et al.") {
		t.Fatalf("expected truncated author line, got %q", item.Description)
	}
	if !strings.Contains(item.Description, "autonomous trading agents") {
		t.Fatalf("expected abstract text, got %q", item.Description)
	}
}

func TestArxivFetch_NoQueriesConfigured(t *testing.T) {
	fetcher := NewArxivFetcher(nil, 25, zerolog.Nop())
	items, err := fetcher.Fetch(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil batch, got %d items", len(items))
	}
}

func TestAuthorLine_ThreeOrFewer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2603.09999v1</id>
    <title>Solo agentic banking paper</title>
    <link href="http://arxiv.org/abs/2603.09999v1" rel="alternate" type="text/html"/>
    <summary>Short abstract.</summary>
    <published>2026-03-10T08:00:00Z</published>
    <author><name>Only Author</name></author>
  </entry>
</feed>`))
	}))
	t.Cleanup(server.Close)

	fetcher := NewArxivFetcher([]string{"q"}, 25, zerolog.Nop())
	fetcher.SetBaseURL(server.URL)

	items, err := fetcher.Fetch(context.Background(), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(items))
	}
	if strings.Contains(items[0].Description, "et al.") {
		t.Fatalf("single author must not get et al., got %q", items[0].Description)
	}
	if !strings.Contains(items[0].Description, "Only Author") {
		t.Fatalf("author missing from description: %q", items[0].Description)
	}
}
