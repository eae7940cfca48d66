// Package meta is the generic middle tier: one polite HTTP GET through Colly
// followed by structured meta-tag extraction.
package meta

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/declutterbot/declutter/internal/content"
)

// Config controls fetch behavior for the generic tier.
type Config struct {
	// CrawlerUA is sent to domains that treat well-behaved bots kindly.
	CrawlerUA string
	// BrowserUA is the default user agent for everyone else.
	BrowserUA string
	// BotFriendlyDomains receive CrawlerUA instead of BrowserUA.
	BotFriendlyDomains []string
	Timeout            time.Duration
	// DomainRPS bounds request rate per hostname. Zero means unlimited.
	DomainRPS float64
}

// Resolver fetches a page once and extracts its meta tags.
type Resolver struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BrowserUA == "" {
		cfg.BrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	}
	if cfg.CrawlerUA == "" {
		cfg.CrawlerUA = "declutter-preview/1.0 (+https://github.com/declutterbot/declutter)"
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Resolver{
		cfg:      cfg,
		base:     c,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Fetch performs a single GET and extracts the og/twitter/meta triad.
// Non-HTML responses fail closed with a nil record.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return nil, nil
	}
	if err := r.waitDomain(ctx, u.Hostname()); err != nil {
		return nil, err
	}

	var (
		body        []byte
		contentType string
		fetchErr    error
	)
	collector := r.base.Clone()
	collector.UserAgent = r.userAgentFor(u.Hostname())
	collector.SetRequestTimeout(r.cfg.Timeout)
	collector.OnRequest(func(req *colly.Request) {
		req.Headers.Set("Accept", "text/html,application/xhtml+xml")
		req.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	collector.OnResponse(func(resp *colly.Response) {
		body = append([]byte(nil), resp.Body...)
		contentType = resp.Headers.Get("Content-Type")
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := r.visit(ctx, collector, rawURL, &fetchErr); err != nil {
		return nil, err
	}
	if !isHTML(contentType) {
		r.logger.Debug("generic fetch skipped non-html",
			zap.String("url", rawURL),
			zap.String("content_type", contentType),
		)
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	c := ExtractDoc(doc, rawURL)
	if c.Title == "" {
		// Without a title there is nothing worth rendering from this tier.
		r.logger.Debug("generic fetch found no title", zap.String("url", rawURL))
	}
	return c, nil
}

func (r *Resolver) visit(ctx context.Context, collector *colly.Collector, rawURL string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("generic fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("generic visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("generic response failed: %w", *fetchErr)
		}
		return nil
	}
}

// userAgentFor applies the UA policy: friendly crawler string for domains on
// the allow-list, a modern browser string for everyone else.
func (r *Resolver) userAgentFor(host string) string {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	for _, d := range r.cfg.BotFriendlyDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return r.cfg.CrawlerUA
		}
	}
	return r.cfg.BrowserUA
}

func (r *Resolver) waitDomain(ctx context.Context, host string) error {
	if r.cfg.DomainRPS <= 0 {
		return nil
	}
	r.mu.Lock()
	limiter, ok := r.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(r.cfg.DomainRPS), 1)
		r.limiters[host] = limiter
	}
	r.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("domain rate limit: %w", err)
	}
	return nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
