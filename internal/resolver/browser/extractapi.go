package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/urlkit"
)

// extractResponse is the microlink-style envelope returned by the hosted
// metadata-extraction API.
type extractResponse struct {
	Status string `json:"status"`
	Data   struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
		Publisher   string `json:"publisher"`
		Image       struct {
			URL string `json:"url"`
		} `json:"image"`
		URL string `json:"url"`
	} `json:"data"`
}

// fetchExtractAPI asks the hosted extraction service for the page metadata.
// Only consulted for hard-site domains; challenge text is rejected like the
// remote renderer's.
func (r *Resolver) fetchExtractAPI(ctx context.Context, rawURL string) (*content.Content, error) {
	endpoint := r.cfg.ExtractAPIURL + "?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract api: status %d", resp.StatusCode)
	}

	var payload extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("extract api: status %q", payload.Status)
	}
	if looksLikeChallenge(payload.Data.Title, payload.Data.Description) {
		return nil, fmt.Errorf("extract api hit a bot challenge for %s", rawURL)
	}

	platform := payload.Data.Publisher
	if platform == "" {
		platform = urlkit.DisplayName(rawURL)
	}
	source := payload.Data.URL
	if source == "" {
		source = rawURL
	}
	images := []string{}
	if abs := urlkit.Absolute(rawURL, payload.Data.Image.URL); abs != "" {
		images = append(images, abs)
	}
	return &content.Content{
		Platform:   platform,
		AuthorName: payload.Data.Author,
		Title:      payload.Data.Title,
		Body:       payload.Data.Description,
		Images:     images,
		SourceURL:  source,
	}, nil
}
