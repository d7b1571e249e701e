// Package urlutil normalizes URLs into a stable identity used for
// deduplication across pipeline runs.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during canonicalization.
// Matching is case-insensitive.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"msclkid":      {},
	"mc_cid":       {},
	"mc_eid":       {},
	"_ga":          {},
	"_gl":          {},
	"ref":          {},
	"referer":      {},
	"referrer":     {},
}

// httpsUpgradeHosts always serve https; upgrading collapses http/https
// variants of the same link. Heuristic, not a security measure.
var httpsUpgradeHosts = map[string]struct{}{
	"www.youtube.com": {},
	"medium.com":      {},
	"techcrunch.com":  {},
}

// Canonicalize normalizes a raw URL: lower-cases the host, strips tracking
// parameters and the fragment, sorts the surviving query keys, trims the
// trailing slash, and upgrades http to https for known hosts. A URL that
// cannot be parsed is returned unchanged as a degraded canonical form
// together with the parse error, so malformed input never aborts the
// batch. Idempotent.
func Canonicalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw, fmt.Errorf("parse url: %w", err)
	}

	host := strings.ToLower(parsed.Host)

	query := parsed.Query()
	for key := range query {
		if _, tracked := trackingParams[strings.ToLower(key)]; tracked {
			query.Del(key)
		}
	}

	path := parsed.Path
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	scheme := parsed.Scheme
	if scheme == "http" {
		if _, upgrade := httpsUpgradeHosts[host]; upgrade {
			scheme = "https"
		}
	}

	canonical := url.URL{
		Scheme:   scheme,
		User:     parsed.User,
		Host:     host,
		Path:     path,
		RawQuery: query.Encode(), // Encode sorts keys
	}
	return canonical.String(), nil
}

// Fingerprint returns the sha256 hex digest of a canonical URL. It is the
// dedup identity: the same canonical URL always yields the same fingerprint.
func Fingerprint(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Host extracts the lower-cased host component, or "" when the URL cannot
// be parsed.
func Host(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
