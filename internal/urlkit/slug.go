package urlkit

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const (
	minSlugSegment = 12
	minSlugTitle   = 10
)

var (
	leadingDate   = regexp.MustCompile(`^\d{4}[-/_]\d{1,2}[-/_]\d{1,2}[-_]?`)
	slugExtension = regexp.MustCompile(`\.(?:html?|php|aspx?|md)$`)
	slugDelims    = regexp.MustCompile(`[-_+]+`)
)

// SlugTitle derives a human-readable title from the URL path, used when no
// tier could extract one. It picks the longest path segment, strips a leading
// date and file extension, converts delimiters to spaces and title-cases the
// words. Returns "" when the best candidate is too short to be a real slug.
func SlugTitle(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	var best string
	for _, seg := range strings.Split(u.Path, "/") {
		if len(seg) > len(best) {
			best = seg
		}
	}
	if len(best) < minSlugSegment {
		return ""
	}
	best = slugExtension.ReplaceAllString(best, "")
	best = leadingDate.ReplaceAllString(best, "")
	best = slugDelims.ReplaceAllString(best, " ")
	best = strings.TrimSpace(best)
	if len(best) < minSlugTitle || !strings.Contains(best, " ") {
		return ""
	}
	return titleCase(best)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// displayNames maps registrable domains to the label shown as the platform
// name on a minimal preview.
var displayNames = map[string]string{
	"bsky.app":           "Bluesky",
	"twitter.com":        "Twitter",
	"x.com":              "Twitter",
	"reddit.com":         "Reddit",
	"youtube.com":        "YouTube",
	"youtu.be":           "YouTube",
	"github.com":         "GitHub",
	"medium.com":         "Medium",
	"substack.com":       "Substack",
	"nytimes.com":        "The New York Times",
	"theguardian.com":    "The Guardian",
	"washingtonpost.com": "The Washington Post",
	"bbc.com":            "BBC",
	"bbc.co.uk":          "BBC",
	"cnn.com":            "CNN",
	"reuters.com":        "Reuters",
	"bloomberg.com":      "Bloomberg",
	"theverge.com":       "The Verge",
	"arstechnica.com":    "Ars Technica",
	"wired.com":          "WIRED",
	"techcrunch.com":     "TechCrunch",
	"wikipedia.org":      "Wikipedia",
}

// DisplayName returns a friendly site label for the URL's domain, falling
// back to the bare domain itself.
func DisplayName(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return ""
	}
	// Walk up the labels so news.bbc.co.uk still resolves to BBC.
	parts := strings.Split(host, ".")
	for i := range parts {
		if name, ok := displayNames[strings.Join(parts[i:], ".")]; ok {
			return name
		}
	}
	return host
}
