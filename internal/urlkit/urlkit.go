// Package urlkit holds the pure URL helpers the pipeline is built on:
// extraction from free text, platform classification, tracking-parameter
// removal, and fetch-policy predicates.
package urlkit

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform is the closed set of link classifications.
type Platform string

// Known platforms. Unknown is the deliberate fallthrough.
const (
	PlatformBluesky  Platform = "bluesky"
	PlatformMastodon Platform = "mastodon"
	PlatformTwitter  Platform = "twitter"
	PlatformReddit   Platform = "reddit"
	PlatformYouTube  Platform = "youtube"
	PlatformUnknown  Platform = "unknown"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

	blueskyPath  = regexp.MustCompile(`^/profile/[^/]+/post/[A-Za-z0-9]+`)
	twitterPath  = regexp.MustCompile(`^/[A-Za-z0-9_]+/status(?:es)?/\d+`)
	redditPath   = regexp.MustCompile(`^(?:/r/[^/]+)?/comments/[A-Za-z0-9]+`)
	youtubePath  = regexp.MustCompile(`^/(?:watch|shorts/[^/]+|live/[^/]+)`)
	mastodonPath = regexp.MustCompile(`^/@[^/@]+/\d+/?$`)
	mastodonUser = regexp.MustCompile(`^/users/[^/]+/statuses/\d+/?$`)
)

// Extract returns every URL found in text, in first-occurrence order, with
// trailing sentence punctuation stripped from each match. Duplicates after
// stripping collapse to the first occurrence.
func Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = trimTrailingPunct(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// trimTrailingPunct removes punctuation a sentence leaves stuck to a URL.
// A closing paren is only stripped when the URL has no matching opener, so
// wiki-style links like /Foo_(bar) survive.
func trimTrailingPunct(u string) string {
	for len(u) > 0 {
		last := u[len(u)-1]
		switch last {
		case '.', ',', ';', ':', '!', '?', '"', '\'', '>':
			u = u[:len(u)-1]
		case ')':
			if strings.Count(u, ")") > strings.Count(u, "(") {
				u = u[:len(u)-1]
			} else {
				return u
			}
		default:
			return u
		}
	}
	return u
}

// Classifier decides which platform a URL belongs to. The instance set feeds
// the federated-hostname rule; classification is total and deterministic.
type Classifier struct {
	instances map[string]struct{}
}

// NewClassifier builds a Classifier over the configured federated-instance
// hostnames.
func NewClassifier(instances []string) *Classifier {
	set := make(map[string]struct{}, len(instances))
	for _, h := range instances {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return &Classifier{instances: set}
}

// Identify classifies a URL. Fixed per-platform shapes are tested first; a
// URL of the generic "@user/numeric-id" shape classifies as Mastodon even on
// hostnames missing from the instance list — the broader match is deliberate,
// since small fediverse servers vastly outnumber any list we could configure.
func (c *Classifier) Identify(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return PlatformUnknown
	}
	host := strings.ToLower(u.Hostname())
	bare := strings.TrimPrefix(host, "www.")

	switch bare {
	case "bsky.app":
		if blueskyPath.MatchString(u.Path) {
			return PlatformBluesky
		}
	case "twitter.com", "x.com", "mobile.twitter.com", "fxtwitter.com", "vxtwitter.com":
		if twitterPath.MatchString(u.Path) {
			return PlatformTwitter
		}
	case "reddit.com", "old.reddit.com", "new.reddit.com":
		if redditPath.MatchString(u.Path) {
			return PlatformReddit
		}
	case "redd.it":
		return PlatformReddit
	case "youtube.com", "m.youtube.com":
		if youtubePath.MatchString(u.Path) || u.Query().Get("v") != "" {
			return PlatformYouTube
		}
	case "youtu.be":
		return PlatformYouTube
	}
	if strings.HasSuffix(bare, ".reddit.com") && redditPath.MatchString(u.Path) {
		return PlatformReddit
	}

	if mastodonPath.MatchString(u.Path) {
		return PlatformMastodon
	}
	if _, known := c.instances[host]; known && mastodonUser.MatchString(u.Path) {
		return PlatformMastodon
	}
	return PlatformUnknown
}

// trackingKeys are exact-match query parameters stripped by CleanTracking;
// any key with the utm_ prefix is stripped as well.
var trackingKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"ref":     {},
	"ref_src": {},
	"ref_url": {},
	"si":      {},
}

// CleanTracking removes known tracking query parameters. Non-parseable input
// passes through unchanged, and the function is idempotent.
func CleanTracking(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	if u.RawQuery == "" {
		return rawURL
	}
	q := u.Query()
	changed := false
	for key := range q {
		_, tracked := trackingKeys[strings.ToLower(key)]
		if tracked || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
			changed = true
		}
	}
	if !changed {
		return rawURL
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SkipGenericFetch reports whether the URL's domain is on the hard-to-scrape
// list, meaning the plain HTTP tier is a waste of a request.
func SkipGenericFetch(rawURL string, hardDomains []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range hardDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// DeferToNative reports whether the destination's own preview should handle
// the link. Only YouTube renders better natively than anything we can build.
func DeferToNative(p Platform) bool {
	return p == PlatformYouTube
}

// Absolute resolves ref against base, returning ref untouched when it is
// already absolute and "" when nothing sensible can be built.
func Absolute(base, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(r).String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
