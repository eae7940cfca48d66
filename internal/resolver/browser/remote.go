package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/resolver/meta"
)

// renderRequest is the browserless-style /content payload: navigate, wait
// for the network to go idle, return the rendered DOM.
type renderRequest struct {
	URL      string `json:"url"`
	GotoOpts struct {
		WaitUntil string `json:"waitUntil"`
	} `json:"gotoOptions"`
}

// fetchRemoteRender submits the URL to the hosted rendering API and extracts
// the meta triad from the rendered document. Challenge pages are rejected.
func (r *Resolver) fetchRemoteRender(ctx context.Context, rawURL string) (*content.Content, error) {
	payload := renderRequest{URL: rawURL}
	payload.GotoOpts.WaitUntil = "networkidle2"
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	endpoint := strings.TrimRight(r.cfg.RemoteRenderURL, "/") + "/content?token=" + r.cfg.RemoteRenderToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote render: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote render: status %d", resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, fmt.Errorf("read rendered dom: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered dom: %w", err)
	}

	c := meta.ExtractDoc(doc, rawURL)
	if looksLikeChallenge(c.Title, c.Body, doc.Find("body").Text()) {
		return nil, fmt.Errorf("remote render hit a bot challenge for %s", rawURL)
	}
	return c, nil
}
