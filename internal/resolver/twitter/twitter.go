// Package twitter resolves tweet URLs through the fxtwitter mirror API,
// which exposes tweet JSON without authentication.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
)

const defaultBaseURL = "https://api.fxtwitter.com"

var tweetPattern = regexp.MustCompile(`^https?://(?:www\.|mobile\.)?(?:twitter|x|fxtwitter|vxtwitter)\.com/([A-Za-z0-9_]+)/status(?:es)?/(\d+)`)

// Resolver fetches tweets from the mirror API.
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

// WithBaseURL points the resolver at a different mirror host. Used in tests.
func (r *Resolver) WithBaseURL(base string) *Resolver {
	r.baseURL = base
	return r
}

type mirrorResponse struct {
	Code  int `json:"code"`
	Tweet struct {
		Text   string `json:"text"`
		URL    string `json:"url"`
		Author struct {
			Name       string `json:"name"`
			ScreenName string `json:"screen_name"`
			AvatarURL  string `json:"avatar_url"`
		} `json:"author"`
		Media struct {
			Photos []struct {
				URL string `json:"url"`
			} `json:"photos"`
			Videos []struct {
				ThumbnailURL string `json:"thumbnail_url"`
			} `json:"videos"`
		} `json:"media"`
	} `json:"tweet"`
}

// Fetch maps a tweet URL to normalized content. Non-status URLs return nil
// without any network call.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	m := tweetPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	user, id := m[1], m[2]
	endpoint := fmt.Sprintf("%s/%s/status/%s", r.baseURL, user, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tweet mirror api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tweet mirror api: status %d", resp.StatusCode)
	}

	var payload mirrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tweet response: %w", err)
	}
	if payload.Code != 0 && payload.Code != http.StatusOK {
		return nil, fmt.Errorf("tweet mirror api: code %d", payload.Code)
	}

	t := payload.Tweet
	images := []string{}
	for _, p := range t.Media.Photos {
		if p.URL != "" {
			images = append(images, p.URL)
		}
	}
	for _, v := range t.Media.Videos {
		if v.ThumbnailURL != "" {
			images = append(images, v.ThumbnailURL)
		}
	}

	source := t.URL
	if source == "" {
		source = rawURL
	}
	c := &content.Content{
		Platform:        "Twitter",
		AuthorName:      t.Author.Name,
		AuthorHandle:    "@" + t.Author.ScreenName,
		AuthorAvatarURL: t.Author.AvatarURL,
		Body:            t.Text,
		Images:          images,
		SourceURL:       source,
	}
	r.logger.Debug("tweet resolved", zap.String("user", user), zap.String("id", id))
	return c, nil
}
