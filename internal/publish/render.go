package publish

import (
	"strings"

	"horse.fit/agentwire/internal/domain"
)

// MaxTweetLength is the platform's hard character limit.
const MaxTweetLength = 280

const excerptMaxLength = 100

// Renderer turns a selected item into a bounded-length post. Tones are
// optional lead-in fragments; when present one is chosen by hashing the
// item fingerprint, so the same item always renders identically. Template
// choice is presentation only and swappable without touching the pipeline.
type Renderer struct {
	MaxLength int
	Tones     []string
}

func NewRenderer() *Renderer {
	return &Renderer{MaxLength: MaxTweetLength}
}

// Render produces "{tone}{title} — {excerpt} {url}" and degrades
// progressively until it fits: first the excerpt goes, then the tone, and
// finally the title is truncated with an ellipsis. The URL is always kept
// whole.
func (r *Renderer) Render(item domain.Item) string {
	limit := r.MaxLength
	if limit <= 0 {
		limit = MaxTweetLength
	}

	link := item.Link()
	title := strings.TrimSpace(item.Title)
	tone := r.pickTone(item.Fingerprint)
	excerpt := deriveExcerpt(item.Description, title)

	full := tone + title
	if excerpt != "" {
		full += " — " + excerpt
	}
	full += " " + link
	if runeLen(full) <= limit {
		return full
	}

	withoutExcerpt := tone + title + " " + link
	if runeLen(withoutExcerpt) <= limit {
		return withoutExcerpt
	}

	bare := title + " " + link
	if runeLen(bare) <= limit {
		return bare
	}

	// Truncate the title; the link and the "... " marker must still fit.
	available := limit - runeLen(link) - 4
	if available < 1 {
		return truncateRunes(link, limit)
	}
	return strings.TrimSpace(truncateRunes(title, available)) + "... " + link
}

func (r *Renderer) pickTone(fingerprint string) string {
	if len(r.Tones) == 0 || fingerprint == "" {
		return ""
	}
	index := int(fingerprint[0]) % len(r.Tones)
	tone := strings.TrimSpace(r.Tones[index])
	if tone == "" {
		return ""
	}
	return tone + " "
}

// deriveExcerpt takes the first sentence of the description, falling back
// to a fixed-width prefix, and drops it entirely when it only repeats the
// title.
func deriveExcerpt(description, title string) string {
	cleaned := strings.Join(strings.Fields(description), " ")
	if cleaned == "" {
		return ""
	}

	excerpt := cleaned
	if dot := strings.Index(cleaned, "."); dot > 0 {
		excerpt = strings.TrimSpace(cleaned[:dot])
	} else if runeLen(cleaned) > excerptMaxLength {
		excerpt = strings.TrimSpace(truncateRunes(cleaned, excerptMaxLength))
	}

	if strings.EqualFold(excerpt, strings.TrimSpace(title)) {
		return ""
	}
	return excerpt
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
