// Package app initializes and holds the long-lived application services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/bot"
	"github.com/declutterbot/declutter/internal/config"
	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/dedupe"
	"github.com/declutterbot/declutter/internal/delivery"
	"github.com/declutterbot/declutter/internal/logging"
	"github.com/declutterbot/declutter/internal/ops"
	"github.com/declutterbot/declutter/internal/pipeline"
	"github.com/declutterbot/declutter/internal/publisher"
	"github.com/declutterbot/declutter/internal/resolver/bluesky"
	"github.com/declutterbot/declutter/internal/resolver/browser"
	"github.com/declutterbot/declutter/internal/resolver/mastodon"
	"github.com/declutterbot/declutter/internal/resolver/meta"
	"github.com/declutterbot/declutter/internal/resolver/reddit"
	"github.com/declutterbot/declutter/internal/resolver/twitter"
	"github.com/declutterbot/declutter/internal/settings"
	"github.com/declutterbot/declutter/internal/urlkit"
)

// App owns every service and wires them together at startup.
type App struct {
	logger   *zap.Logger
	cfg      config.Config
	session  *discordgo.Session
	store    *settings.Store
	queue    *delivery.Queue
	browser  *browser.Resolver
	bot      *bot.Bot
	ops      *ops.Server
	pipeline *pipeline.Pipeline
}

// New builds the full service graph from configuration, failing fast when a
// critical dependency cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logger.Info("initializing services")

	store, err := settings.Open(cfg.DB.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	// The classifier knows the configured instances plus every host learned
	// at runtime and persisted across restarts.
	instances := cfg.Resolver.MastodonInstances
	stored, err := store.MastodonInstances(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load mastodon instances: %w", err)
	}
	instances = append(instances, stored...)
	classifier := urlkit.NewClassifier(instances)

	tier1 := map[urlkit.Platform]content.Resolver{
		urlkit.PlatformBluesky:  bluesky.New(cfg.Tier1Timeout(), logger),
		urlkit.PlatformMastodon: mastodon.New(cfg.Tier1Timeout(), logger),
		urlkit.PlatformTwitter:  twitter.New(cfg.Tier1Timeout(), logger),
		urlkit.PlatformReddit:   reddit.New(cfg.Tier1Timeout(), logger),
	}
	tier2 := meta.New(meta.Config{
		CrawlerUA:          cfg.Resolver.CrawlerUserAgent,
		BrowserUA:          cfg.Resolver.BrowserUserAgent,
		BotFriendlyDomains: cfg.Resolver.BotFriendlyDomains,
		Timeout:            cfg.Tier2Timeout(),
		DomainRPS:          cfg.Resolver.DomainRPS,
	}, logger)
	tier3 := browser.New(browser.Config{
		RemoteRenderURL:   cfg.Browser.RemoteRenderURL,
		RemoteRenderToken: cfg.Browser.RemoteRenderToken,
		ExtractAPIURL:     cfg.Browser.ExtractAPIURL,
		HardDomains:       cfg.Resolver.HardDomains,
		UserAgent:         cfg.Resolver.BrowserUserAgent,
		NavTimeout:        time.Duration(cfg.Browser.NavTimeoutSec) * time.Second,
		Settle:            time.Duration(cfg.Browser.SettleMs) * time.Millisecond,
	}, logger)

	pipe := pipeline.New(classifier, tier1, tier2, tier3, pipeline.Config{
		HardDomains:  cfg.Resolver.HardDomains,
		Tier1Timeout: cfg.Tier1Timeout(),
		Tier2Timeout: cfg.Tier2Timeout(),
		Tier3Timeout: cfg.Tier3Timeout(),
	}, logger)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	queue := delivery.NewQueue(cfg.Pacing(), logger)
	pub := publisher.New(session, cfg.Discord.AppID, logger)
	dd := dedupe.New(cfg.DedupeWindow(), cfg.Dedupe.Capacity)

	b := bot.New(session, pipe, queue, pub, store, dd, classifier, bot.Config{
		GuildID: cfg.Discord.GuildID,
	}, logger)

	logger.Info("services initialized")
	return &App{
		logger:   logger,
		cfg:      cfg,
		session:  session,
		store:    store,
		queue:    queue,
		browser:  tier3,
		bot:      b,
		ops:      ops.NewServer(cfg.Ops.Port, logger),
		pipeline: pipe,
	}, nil
}

// Run serves the gateway and the ops surface until ctx finishes. The first
// component to fail takes the whole process down.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- a.ops.Run(runCtx) }()
	go func() { errCh <- a.bot.Run(runCtx) }()

	err := <-errCh
	cancel()
	<-errCh
	return err
}

// Close flushes and releases everything Run left behind.
func (a *App) Close() {
	a.logger.Info("shutting down services")
	a.queue.Close()
	a.browser.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing settings store", zap.Error(err))
	}
	_ = a.logger.Sync()
}
