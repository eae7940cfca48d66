package content

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	brPattern    = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraBoundary = regexp.MustCompile(`(?i)</p>\s*<p[^>]*>`)
)

// StripMarkup converts an HTML fragment, as returned by platform APIs such as
// Mastodon, into plain text. Paragraph and line-break boundaries become
// newlines; all other tags are dropped and entities decoded.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = brPattern.ReplaceAllString(s, "\n")
	s = paraBoundary.ReplaceAllString(s, "\n\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// Fall back to entity decoding only; better than returning raw tags.
		return strings.TrimSpace(html.UnescapeString(s))
	}
	return strings.TrimSpace(doc.Text())
}
