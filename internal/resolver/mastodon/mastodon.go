// Package mastodon resolves fediverse status URLs through the instance's own
// public REST API.
package mastodon

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

var statusPattern = regexp.MustCompile(`^(https?)://([^/]+)/@[^/@]+/(\d+)/?$`)

// Resolver fetches statuses from whichever instance hosts the URL.
type Resolver struct {
	client *http.Client
	logger *zap.Logger
}

// New constructs a Resolver with the given request timeout.
func New(timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type status struct {
	Content     string `json:"content"`
	SpoilerText string `json:"spoiler_text"`
	URL         string `json:"url"`
	Account     struct {
		DisplayName string `json:"display_name"`
		Acct        string `json:"acct"`
		Avatar      string `json:"avatar"`
	} `json:"account"`
	MediaAttachments []struct {
		Type       string `json:"type"`
		URL        string `json:"url"`
		PreviewURL string `json:"preview_url"`
	} `json:"media_attachments"`
}

// Fetch maps a "@user/id" status URL to normalized content. The instance is
// taken from the URL itself; no instance list is consulted here.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	m := statusPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, nil
	}
	scheme, host, id := m[1], m[2], m[3]
	endpoint := fmt.Sprintf("%s://%s/api/v1/statuses/%s", scheme, host, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build mastodon request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mastodon api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mastodon api: status %d", resp.StatusCode)
	}

	var st status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode mastodon response: %w", err)
	}

	name := st.Account.DisplayName
	if name == "" {
		name = st.Account.Acct
	}
	source := st.URL
	if source == "" {
		source = rawURL
	}
	c := &content.Content{
		Platform:        "Mastodon",
		AuthorName:      name,
		AuthorHandle:    "@" + st.Account.Acct,
		AuthorAvatarURL: st.Account.Avatar,
		Title:           st.SpoilerText,
		Body:            content.StripMarkup(st.Content),
		Images:          collectImages(st),
		SourceURL:       source,
	}
	r.logger.Debug("mastodon status resolved",
		zap.String("instance", host),
		zap.String("id", id),
	)
	return c, nil
}

// collectImages keeps attachment order and prefers the full asset URL over
// the preview. Video attachments contribute their preview frame.
func collectImages(st status) []string {
	out := []string{}
	for _, att := range st.MediaAttachments {
		switch att.Type {
		case "image", "gifv":
			if att.URL != "" {
				out = append(out, att.URL)
			} else if att.PreviewURL != "" {
				out = append(out, att.PreviewURL)
			}
		case "video":
			if att.PreviewURL != "" {
				out = append(out, att.PreviewURL)
			}
		}
	}
	return out
}
