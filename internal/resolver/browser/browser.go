// Package browser is the most capable and most expensive tier: a stack of
// rendering fallbacks ending in a shared local headless Chrome.
package browser

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/urlkit"
)

// Config controls the tier-3 strategy stack.
type Config struct {
	// RemoteRenderURL plus RemoteRenderToken enable the hosted rendering API
	// strategy. Leaving the token empty disables it.
	RemoteRenderURL   string
	RemoteRenderToken string
	// ExtractAPIURL is the third-party metadata-extraction endpoint, tried
	// only for domains on the hard-site list.
	ExtractAPIURL string
	HardDomains   []string
	// UserAgent, NavTimeout and Settle shape local headless navigation.
	UserAgent  string
	NavTimeout time.Duration
	Settle     time.Duration
}

func (c *Config) applyDefaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 25 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 1500 * time.Millisecond
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	}
}

// strategy is one rendering fallback. Fetch order is fixed; the first
// sufficient result wins.
type strategy struct {
	name    string
	applies func(rawURL string) bool
	fetch   func(ctx context.Context, rawURL string) (*content.Content, error)
}

// Resolver composes the fallback strategies.
type Resolver struct {
	cfg        Config
	client     *http.Client
	logger     *zap.Logger
	local      *localBrowser
	strategies []strategy
}

// New builds the Resolver and its strategy stack. The local browser process
// is not launched until the first fetch that reaches it.
func New(cfg Config, logger *zap.Logger) *Resolver {
	cfg.applyDefaults()
	r := &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.NavTimeout},
		logger: logger,
		local:  newLocalBrowser(cfg, logger),
	}
	always := func(string) bool { return true }
	r.strategies = []strategy{
		{
			name:    "remote_render",
			applies: func(string) bool { return cfg.RemoteRenderToken != "" && cfg.RemoteRenderURL != "" },
			fetch:   r.fetchRemoteRender,
		},
		{
			name: "extract_api",
			applies: func(rawURL string) bool {
				return cfg.ExtractAPIURL != "" && urlkit.SkipGenericFetch(rawURL, cfg.HardDomains)
			},
			fetch: r.fetchExtractAPI,
		},
		{name: "url_slug", applies: always, fetch: r.fetchSlug},
		{name: "local_browser", applies: always, fetch: r.local.fetch},
	}
	return r
}

// Fetch tries each strategy in order and returns the first sufficient
// record. A strategy error is logged and treated as a miss.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	for _, s := range r.strategies {
		if !s.applies(rawURL) {
			continue
		}
		c, err := s.fetch(ctx, rawURL)
		if err != nil {
			r.logger.Warn("browser strategy failed",
				zap.String("strategy", s.name),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			continue
		}
		if c.Sufficient() {
			r.logger.Debug("browser strategy succeeded",
				zap.String("strategy", s.name),
				zap.String("url", rawURL),
			)
			return c, nil
		}
	}
	return nil, nil
}

// Close tears down the shared local browser, if one was ever launched.
func (r *Resolver) Close() {
	r.local.teardown()
}

// fetchSlug is the zero-I/O heuristic: a readable title recovered from the
// URL path, paired with the static domain display name.
func (r *Resolver) fetchSlug(_ context.Context, rawURL string) (*content.Content, error) {
	title := urlkit.SlugTitle(rawURL)
	if title == "" {
		return nil, nil
	}
	return &content.Content{
		Platform:  urlkit.DisplayName(rawURL),
		Title:     title,
		Images:    []string{},
		SourceURL: rawURL,
	}, nil
}
