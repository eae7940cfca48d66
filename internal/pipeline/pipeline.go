// Package pipeline implements the escalation state machine that turns a URL
// into normalized content, trying progressively more expensive tiers.
package pipeline

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/telemetry"
	"github.com/declutterbot/declutter/internal/urlkit"
)

// Tier labels used in logs and metrics.
const (
	tierPlatform = "tier1_platform"
	tierGeneric  = "tier2_generic"
	tierBrowser  = "tier3_browser"
	tierStub     = "stub"
)

// Config carries the orchestrator's policy knobs.
type Config struct {
	// HardDomains go straight to the browser tier; the generic tier only
	// runs for them as a backup.
	HardDomains []string
	// Per-tier attempt budgets.
	Tier1Timeout time.Duration
	Tier2Timeout time.Duration
	Tier3Timeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Tier1Timeout <= 0 {
		c.Tier1Timeout = 10 * time.Second
	}
	if c.Tier2Timeout <= 0 {
		c.Tier2Timeout = 15 * time.Second
	}
	if c.Tier3Timeout <= 0 {
		c.Tier3Timeout = 45 * time.Second
	}
}

// Pipeline composes the tiers into one total function from URL to content.
type Pipeline struct {
	classifier *urlkit.Classifier
	tier1      map[urlkit.Platform]content.Resolver
	tier2      content.Resolver
	tier3      content.Resolver
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline. Platforms without a tier-1 entry fall through to
// the generic path.
func New(
	classifier *urlkit.Classifier,
	tier1 map[urlkit.Platform]content.Resolver,
	tier2 content.Resolver,
	tier3 content.Resolver,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		classifier: classifier,
		tier1:      tier1,
		tier2:      tier2,
		tier3:      tier3,
		cfg:        cfg,
		logger:     logger,
	}
}

// Resolve is total: it never panics and never returns nil. The worst case is
// the minimal stub, computed from the URL string alone with zero I/O.
func (p *Pipeline) Resolve(ctx context.Context, rawURL string) *content.Content {
	start := time.Now()
	c, tier := p.resolve(ctx, rawURL)
	telemetry.ObserveResolve(tier, time.Since(start))
	p.logger.Info("url resolved",
		zap.String("url", rawURL),
		zap.String("tier", tier),
		zap.Duration("took", time.Since(start)),
	)
	return c
}

func (p *Pipeline) resolve(ctx context.Context, rawURL string) (*content.Content, string) {
	platform := p.classifier.Identify(rawURL)
	if r, ok := p.tier1[platform]; ok {
		if c := p.attempt(ctx, tierPlatform, r, rawURL, p.cfg.Tier1Timeout); c.Sufficient() {
			return c, tierPlatform
		}
	}

	if urlkit.SkipGenericFetch(rawURL, p.cfg.HardDomains) {
		// Hard sites serve bot walls to plain HTTP; spend the browser first
		// and keep the generic tier as the backup.
		if c := p.attempt(ctx, tierBrowser, p.tier3, rawURL, p.cfg.Tier3Timeout); c.Sufficient() {
			return c, tierBrowser
		}
		if c := p.attempt(ctx, tierGeneric, p.tier2, rawURL, p.cfg.Tier2Timeout); c.Sufficient() {
			return c, tierGeneric
		}
		return p.stub(rawURL), tierStub
	}

	if c := p.attempt(ctx, tierGeneric, p.tier2, rawURL, p.cfg.Tier2Timeout); genericSufficient(c) {
		return c, tierGeneric
	}
	if c := p.attempt(ctx, tierBrowser, p.tier3, rawURL, p.cfg.Tier3Timeout); c.Sufficient() {
		return c, tierBrowser
	}
	return p.stub(rawURL), tierStub
}

// attempt runs one resolver with its tier budget, isolating every failure
// mode: errors and panics are logged and become a nil record.
func (p *Pipeline) attempt(
	ctx context.Context,
	tier string,
	r content.Resolver,
	rawURL string,
	timeout time.Duration,
) (result *content.Content) {
	if r == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("resolver panicked",
				zap.String("tier", tier),
				zap.String("url", rawURL),
				zap.Any("panic", rec),
			)
			result = nil
		}
		telemetry.ObserveTierAttempt(tier, content.Classify(result, nil).String())
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := r.Fetch(attemptCtx, rawURL)
	if err != nil {
		p.logger.Warn("tier attempt failed",
			zap.String("tier", tier),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil
	}
	return c
}

// genericSufficient is the stricter bar for the middle tier: a bare title is
// not enough to stop escalating, it needs a body or at least one image.
func genericSufficient(c *content.Content) bool {
	if c == nil || c.Title == "" {
		return false
	}
	return c.Body != "" || len(c.Images) > 0
}

// stub is the I/O-free floor under the whole pipeline.
func (p *Pipeline) stub(rawURL string) *content.Content {
	platform := urlkit.DisplayName(rawURL)
	title := urlkit.SlugTitle(rawURL)
	if title == "" {
		title = bareDomain(rawURL)
	}
	if platform == "" {
		platform = "link"
	}
	if title == "" {
		title = rawURL
	}
	return &content.Content{
		Platform:  platform,
		Title:     title,
		Images:    []string{},
		SourceURL: rawURL,
	}
}

func bareDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
