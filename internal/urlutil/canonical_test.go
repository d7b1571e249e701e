package urlutil

import (
	"strings"
	"testing"
)

func TestCanonicalize_StripsTrackingAndSortsQuery(t *testing.T) {
	t.Parallel()

	got, err := Canonicalize("https://Example.COM/news/path/?utm_source=abc&fbclid=123&b=2&a=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/news/path?a=1&b=2" {
		t.Fatalf("unexpected canonical url: %q", got)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://example.com/a/b/?utm_medium=social&z=1&y=2#section",
		"http://www.youtube.com/watch?v=abc123",
		"https://example.com/",
		"https://example.com/path///",
	}
	for _, input := range inputs {
		once, err := Canonicalize(input)
		if err != nil {
			t.Fatalf("Canonicalize(%q) failed: %v", input, err)
		}
		twice, err := Canonicalize(once)
		if err != nil {
			t.Fatalf("Canonicalize(%q) failed on second pass: %v", once, err)
		}
		if once != twice {
			t.Fatalf("not idempotent for %q: first %q second %q", input, once, twice)
		}
	}
}

func TestCanonicalize_TrackingVariantsCollapse(t *testing.T) {
	t.Parallel()

	clean, err := Canonicalize("https://example.com/article?id=7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tracked, err := Canonicalize("https://example.com/article?utm_campaign=spring&id=7&gclid=xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clean != tracked {
		t.Fatalf("tracking variants should collapse: %q vs %q", clean, tracked)
	}
	if Fingerprint(clean) != Fingerprint(tracked) {
		t.Fatalf("fingerprints should match for collapsed URLs")
	}
}

func TestCanonicalize_DropsFragment(t *testing.T) {
	t.Parallel()

	got, err := Canonicalize("https://example.com/post#comments")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/post" {
		t.Fatalf("fragment should be dropped, got %q", got)
	}
}

func TestCanonicalize_RootSlashPreserved(t *testing.T) {
	t.Parallel()

	got, err := Canonicalize("https://example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/" {
		t.Fatalf("root path should keep its slash, got %q", got)
	}
}

func TestCanonicalize_HTTPSUpgradeKnownHostsOnly(t *testing.T) {
	t.Parallel()

	upgraded, err := Canonicalize("http://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(upgraded, "https://") {
		t.Fatalf("expected https upgrade for youtube, got %q", upgraded)
	}

	plain, err := Canonicalize("http://example.org/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(plain, "http://") {
		t.Fatalf("unknown host should not be upgraded, got %q", plain)
	}
}

func TestCanonicalize_MalformedReturnsRawAndError(t *testing.T) {
	t.Parallel()

	raw := "http://exa mple.com/%zz"
	got, err := Canonicalize(raw)
	if err == nil {
		t.Fatalf("expected error for malformed URL")
	}
	if got != raw {
		t.Fatalf("malformed URL should pass through unchanged, got %q", got)
	}
}

func TestFingerprint_Stable(t *testing.T) {
	t.Parallel()

	a := Fingerprint("https://example.com/article?id=7")
	b := Fingerprint("https://example.com/article?id=7")
	if a != b {
		t.Fatalf("fingerprint must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex digest of length 64, got %d", len(a))
	}
	if a == Fingerprint("https://example.com/article?id=8") {
		t.Fatalf("different URLs should not share a fingerprint")
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	if got := Host("https://News.Example.com/path"); got != "news.example.com" {
		t.Fatalf("unexpected host: %q", got)
	}
	if got := Host("http://exa mple.com/%zz"); got != "" {
		t.Fatalf("expected empty host for malformed URL, got %q", got)
	}
}
