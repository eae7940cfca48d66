// Package bot wires the Discord gateway to the resolution pipeline: it watches
// messages for links, resolves them and hands previews to the delivery queue.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/delivery"
	"github.com/declutterbot/declutter/internal/publisher"
	"github.com/declutterbot/declutter/internal/urlkit"
)

const commandPrefix = "!declutter"

// Resolver turns a URL into content. Satisfied by *pipeline.Pipeline.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) *content.Content
}

// Publisher posts previews. Satisfied by *publisher.Publisher.
type Publisher interface {
	Publish(ctx context.Context, channelID string, c *content.Content) error
	PublishText(ctx context.Context, channelID, text string) error
}

// Settings is the per-channel toggle store. Satisfied by *settings.Store.
type Settings interface {
	Enabled(ctx context.Context, channelID string) (bool, error)
	SetEnabled(ctx context.Context, channelID string, enabled bool) error
}

// Deduper remembers handled message IDs. Satisfied by *dedupe.Cache.
type Deduper interface {
	Seen(id string) bool
}

// Config controls gateway behavior.
type Config struct {
	GuildID string
	// ResolveTimeout bounds one message's whole resolve.
	ResolveTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 60 * time.Second
	}
}

// Bot owns the gateway session and the message handler.
type Bot struct {
	cfg        Config
	resolver   Resolver
	queue      *delivery.Queue
	publisher  Publisher
	settings   Settings
	dedupe     Deduper
	classifier *urlkit.Classifier
	logger     *zap.Logger

	session *discordgo.Session
	selfID  string
}

// New constructs a Bot around an already-built session.
func New(
	session *discordgo.Session,
	resolver Resolver,
	queue *delivery.Queue,
	pub Publisher,
	st Settings,
	dd Deduper,
	classifier *urlkit.Classifier,
	cfg Config,
	logger *zap.Logger,
) *Bot {
	cfg.applyDefaults()
	return &Bot{
		cfg:        cfg,
		resolver:   resolver,
		queue:      queue,
		publisher:  pub,
		settings:   st,
		dedupe:     dd,
		classifier: classifier,
		logger:     logger,
		session:    session,
	}
}

// Run connects to the gateway and blocks until ctx finishes.
func (b *Bot) Run(ctx context.Context) error {
	b.session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.HandleMessage(ctx, m.Message)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway session: %w", err)
	}
	if b.session.State != nil && b.session.State.User != nil {
		b.selfID = b.session.State.User.ID
	}
	b.logger.Info("gateway connected")

	<-ctx.Done()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close gateway session: %w", err)
	}
	return nil
}

// HandleMessage processes one inbound message end to end. Safe to call
// concurrently; all slow work happens on the delivery queue.
func (b *Bot) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == b.selfID {
		return
	}
	if b.cfg.GuildID != "" && m.GuildID != b.cfg.GuildID {
		return
	}
	if b.dedupe.Seen(m.ID) {
		return
	}

	text := strings.TrimSpace(m.Content)
	if strings.HasPrefix(text, commandPrefix) {
		b.handleCommand(ctx, m.ChannelID, text)
		return
	}

	enabled, err := b.settings.Enabled(ctx, m.ChannelID)
	if err != nil {
		b.logger.Error("read channel settings", zap.String("channel_id", m.ChannelID), zap.Error(err))
		return
	}
	if !enabled {
		return
	}

	urls := urlkit.Extract(m.Content)
	if len(urls) == 0 {
		return
	}
	// Only the first URL in a message gets a preview.
	raw := urls[0]
	cleaned := urlkit.CleanTracking(raw)

	if urlkit.DeferToNative(b.classifier.Identify(cleaned)) {
		// Discord's own unfurl is better for these. Repost only when tracking
		// params were stripped, otherwise the original message already shows it.
		if cleaned != raw {
			b.enqueueText(m.ChannelID, cleaned)
		}
		return
	}

	b.enqueuePreview(m.ChannelID, cleaned)
}

// enqueuePreview queues resolve-then-publish on the channel's delivery lane.
func (b *Bot) enqueuePreview(channelID, rawURL string) {
	b.queue.Enqueue(channelID, func(ctx context.Context) error {
		resolveCtx, cancel := context.WithTimeout(ctx, b.cfg.ResolveTimeout)
		defer cancel()

		c := b.resolver.Resolve(resolveCtx, rawURL)
		err := b.publisher.Publish(ctx, channelID, c)
		if errors.Is(err, publisher.ErrIdentityGone) {
			// The stale identity was evicted; one retry rebuilds it.
			err = b.publisher.Publish(ctx, channelID, c)
		}
		if err != nil {
			return fmt.Errorf("publish preview for %s: %w", rawURL, err)
		}
		return nil
	})
}

func (b *Bot) enqueueText(channelID, text string) {
	b.queue.Enqueue(channelID, func(ctx context.Context) error {
		if err := b.publisher.PublishText(ctx, channelID, text); err != nil {
			return fmt.Errorf("publish text: %w", err)
		}
		return nil
	})
}

// handleCommand serves the `!declutter on|off` channel toggle. Commands work
// even in disabled channels so a channel can be switched back on.
func (b *Bot) handleCommand(ctx context.Context, channelID, text string) {
	arg := strings.TrimSpace(strings.TrimPrefix(text, commandPrefix))
	var enabled bool
	switch arg {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		b.enqueueText(channelID, "usage: "+commandPrefix+" on|off")
		return
	}

	if err := b.settings.SetEnabled(ctx, channelID, enabled); err != nil {
		b.logger.Error("update channel settings", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	reply := "link previews are off for this channel"
	if enabled {
		reply = "link previews are on for this channel"
	}
	b.enqueueText(channelID, reply)
}
