// Package bluesky resolves bsky.app post URLs through the public AppView API.
package bluesky

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
)

const defaultBaseURL = "https://public.api.bsky.app"

var postPattern = regexp.MustCompile(`^https?://(?:www\.)?bsky\.app/profile/([^/]+)/post/([A-Za-z0-9]+)`)

// Resolver fetches post records from the Bluesky AppView.
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

// WithBaseURL points the resolver at a different AppView host. Used in tests.
func (r *Resolver) WithBaseURL(base string) *Resolver {
	r.baseURL = base
	return r
}

type threadResponse struct {
	Thread struct {
		Post struct {
			Author struct {
				DisplayName string `json:"displayName"`
				Handle      string `json:"handle"`
				Avatar      string `json:"avatar"`
			} `json:"author"`
			Record struct {
				Text string `json:"text"`
			} `json:"record"`
			Embed embed `json:"embed"`
		} `json:"post"`
	} `json:"thread"`
}

type embed struct {
	Images []embedImage `json:"images"`
	Media  *embed       `json:"media"`
}

type embedImage struct {
	Fullsize string `json:"fullsize"`
	Thumb    string `json:"thumb"`
}

// Fetch maps a bsky.app post URL to normalized content. URLs that do not
// match the expected shape return nil without any network call.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	m := postPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	actor, rkey := m[1], m[2]
	atURI := fmt.Sprintf("at://%s/app.bsky.feed.post/%s", actor, rkey)
	endpoint := r.baseURL + "/xrpc/app.bsky.feed.getPostThread?depth=0&uri=" + url.QueryEscape(atURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build bluesky request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bluesky api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bluesky api: status %d", resp.StatusCode)
	}

	var payload threadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bluesky response: %w", err)
	}

	post := payload.Thread.Post
	if post.Author.Handle == "" && post.Record.Text == "" {
		return nil, fmt.Errorf("bluesky response missing post for %s", atURI)
	}

	name := post.Author.DisplayName
	if name == "" {
		name = post.Author.Handle
	}
	c := &content.Content{
		Platform:        "Bluesky",
		AuthorName:      name,
		AuthorHandle:    "@" + post.Author.Handle,
		AuthorAvatarURL: post.Author.Avatar,
		Body:            post.Record.Text,
		Images:          collectImages(post.Embed),
		SourceURL:       rawURL,
	}
	r.logger.Debug("bluesky post resolved",
		zap.String("uri", atURI),
		zap.Int("images", len(c.Images)),
	)
	return c, nil
}

// collectImages prefers fullsize variants and keeps API order. Image embeds
// nested under record-with-media land in Media.Images.
func collectImages(e embed) []string {
	out := []string{}
	groups := [][]embedImage{e.Images}
	if e.Media != nil {
		groups = append(groups, e.Media.Images)
	}
	for _, group := range groups {
		for _, img := range group {
			switch {
			case img.Fullsize != "":
				out = append(out, img.Fullsize)
			case img.Thumb != "":
				out = append(out, img.Thumb)
			}
		}
	}
	return out
}
