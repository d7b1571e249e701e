package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML flattens feed summaries to plain text with collapsed
// whitespace. Input that fails to parse is returned trimmed as-is.
func StripHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.ContainsRune(trimmed, '<') {
		return strings.Join(strings.Fields(trimmed), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return strings.Join(strings.Fields(trimmed), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
