// Package reddit resolves reddit comment-page URLs through the public JSON
// listing endpoint (the post URL with a .json suffix).
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
)

const (
	defaultBaseURL = "https://www.reddit.com"
	userAgent      = "declutter-preview/1.0 (read-only link preview)"
)

var postPattern = regexp.MustCompile(`^https?://(?:www\.|old\.|new\.)?reddit\.com((?:/r/[^/]+)?/comments/[A-Za-z0-9]+(?:/[^/?#]+)?)`)

// Resolver fetches post listings from reddit.
type Resolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// New constructs a Resolver with the given request timeout.
func New(timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// WithBaseURL points the resolver at a different host. Used in tests.
func (r *Resolver) WithBaseURL(base string) *Resolver {
	r.baseURL = base
	return r
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title               string `json:"title"`
	Selftext            string `json:"selftext"`
	Author              string `json:"author"`
	SubredditPrefixed   string `json:"subreddit_name_prefixed"`
	Permalink           string `json:"permalink"`
	URLOverriddenByDest string `json:"url_overridden_by_dest"`
	IsGallery           bool   `json:"is_gallery"`
	GalleryData         struct {
		Items []struct {
			MediaID string `json:"media_id"`
		} `json:"items"`
	} `json:"gallery_data"`
	MediaMetadata map[string]struct {
		S struct {
			U   string `json:"u"`
			GIF string `json:"gif"`
		} `json:"s"`
	} `json:"media_metadata"`
	Preview struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// Fetch maps a reddit comment URL to normalized content. Short redd.it links
// and non-comment URLs return nil; the generic tiers handle those.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	m := postPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	// raw_json=1 turns off reddit's HTML entity escaping in URLs and text.
	endpoint := r.baseURL + m[1] + ".json?raw_json=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build reddit request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit api: status %d", resp.StatusCode)
	}

	var listings []listing
	if err := json.NewDecoder(resp.Body).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return nil, fmt.Errorf("reddit response missing post for %s", m[1])
	}
	p := listings[0].Data.Children[0].Data

	source := rawURL
	if p.Permalink != "" {
		source = "https://www.reddit.com" + p.Permalink
	}
	c := &content.Content{
		Platform:     "Reddit",
		AuthorName:   p.Author,
		AuthorHandle: "u/" + p.Author,
		Title:        p.Title,
		Body:         p.Selftext,
		Images:       collectImages(p),
		SourceURL:    source,
	}
	r.logger.Debug("reddit post resolved",
		zap.String("subreddit", p.SubredditPrefixed),
		zap.Int("images", len(c.Images)),
	)
	return c, nil
}

// collectImages prefers gallery items in gallery order, then the full-size
// preview source, then a direct image link.
func collectImages(p post) []string {
	out := []string{}
	if p.IsGallery {
		for _, item := range p.GalleryData.Items {
			meta, ok := p.MediaMetadata[item.MediaID]
			if !ok {
				continue
			}
			switch {
			case meta.S.U != "":
				out = append(out, meta.S.U)
			case meta.S.GIF != "":
				out = append(out, meta.S.GIF)
			}
		}
		return out
	}
	for _, img := range p.Preview.Images {
		if img.Source.URL != "" {
			out = append(out, img.Source.URL)
		}
	}
	if len(out) == 0 && isImageLink(p.URLOverriddenByDest) {
		out = append(out, p.URLOverriddenByDest)
	}
	return out
}

func isImageLink(u string) bool {
	lower := strings.ToLower(u)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
