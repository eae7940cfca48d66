// Package publisher reposts resolved content into Discord channels through
// webhooks, so each preview carries the original author's name and avatar.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/telemetry"
)

// ErrIdentityGone reports that the cached webhook identity no longer exists
// on the channel. The cache entry has been evicted; the caller decides
// whether to retry.
var ErrIdentityGone = errors.New("channel webhook no longer exists")

const webhookName = "declutter"

const embedColor = 0x5865F2

// Session is the slice of discordgo the publisher needs. *discordgo.Session
// satisfies it.
type Session interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Publisher owns the per-channel webhook identity cache.
type Publisher struct {
	session Session
	appID   string
	logger  *zap.Logger

	mu       sync.Mutex
	webhooks map[string]*discordgo.Webhook
}

// New constructs a Publisher. appID is the bot's own application ID, used to
// recognize webhooks this bot created.
func New(session Session, appID string, logger *zap.Logger) *Publisher {
	return &Publisher{
		session:  session,
		appID:    appID,
		logger:   logger,
		webhooks: make(map[string]*discordgo.Webhook),
	}
}

// Publish posts the content into the channel under the original author's
// identity. A stale cached webhook returns ErrIdentityGone after evicting the
// entry; the next Publish rebuilds it.
func (p *Publisher) Publish(ctx context.Context, channelID string, c *content.Content) error {
	hook, err := p.webhookFor(channelID)
	if err != nil {
		telemetry.ObservePublish("webhook_error")
		return err
	}

	params := buildParams(c)
	_, err = p.session.WebhookExecute(hook.ID, hook.Token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownWebhook(err) {
			p.evict(channelID)
			telemetry.ObservePublish("identity_gone")
			return fmt.Errorf("%w: %s", ErrIdentityGone, channelID)
		}
		telemetry.ObservePublish("failed")
		return fmt.Errorf("execute webhook: %w", err)
	}
	telemetry.ObservePublish("ok")
	return nil
}

// PublishText posts a plain message as the bot itself. Used for links that
// Discord should unfurl natively.
func (p *Publisher) PublishText(ctx context.Context, channelID, text string) error {
	if _, err := p.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		telemetry.ObservePublish("failed")
		return fmt.Errorf("send message: %w", err)
	}
	telemetry.ObservePublish("ok")
	return nil
}

// webhookFor returns the channel's cached webhook, reusing a bot-owned one
// already on the channel or creating a fresh one. Creation is idempotent:
// listing first means restarts never pile up duplicate webhooks.
func (p *Publisher) webhookFor(channelID string) (*discordgo.Webhook, error) {
	p.mu.Lock()
	if hook, ok := p.webhooks[channelID]; ok {
		p.mu.Unlock()
		return hook, nil
	}
	p.mu.Unlock()

	hooks, err := p.session.ChannelWebhooks(channelID)
	if err != nil {
		return nil, fmt.Errorf("list channel webhooks: %w", err)
	}
	var hook *discordgo.Webhook
	for _, h := range hooks {
		if h.ApplicationID == p.appID && h.Token != "" {
			hook = h
			break
		}
	}
	if hook == nil {
		hook, err = p.session.WebhookCreate(channelID, webhookName, "")
		if err != nil {
			return nil, fmt.Errorf("create channel webhook: %w", err)
		}
		p.logger.Info("created channel webhook", zap.String("channel_id", channelID))
	}

	p.mu.Lock()
	p.webhooks[channelID] = hook
	p.mu.Unlock()
	return hook, nil
}

func (p *Publisher) evict(channelID string) {
	p.mu.Lock()
	delete(p.webhooks, channelID)
	p.mu.Unlock()
	p.logger.Warn("evicted stale webhook identity", zap.String("channel_id", channelID))
}

func isUnknownWebhook(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code == discordgo.ErrCodeUnknownWebhook
	}
	return false
}

// buildParams renders a content record as a webhook payload: the author's
// identity on the message itself, the content in one embed.
func buildParams(c *content.Content) *discordgo.WebhookParams {
	username := c.AuthorName
	if username == "" {
		username = c.Platform
	}
	if username == "" {
		username = webhookName
	}

	embed := &discordgo.MessageEmbed{
		Title:       c.Title,
		Description: clampDescription(c.Body),
		URL:         c.SourceURL,
		Color:       embedColor,
	}
	if c.AuthorHandle != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: footerText(c),
		}
	} else if c.Platform != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: c.Platform}
	}

	embeds := []*discordgo.MessageEmbed{embed}
	if len(c.Images) > 0 {
		embed.Image = &discordgo.MessageEmbedImage{URL: c.Images[0]}
		// Extra images ride along as bare embeds sharing the same URL, which
		// Discord renders as a gallery.
		for _, img := range c.Images[1:] {
			if len(embeds) == 4 {
				break
			}
			embeds = append(embeds, &discordgo.MessageEmbed{
				URL:   c.SourceURL,
				Image: &discordgo.MessageEmbedImage{URL: img},
			})
		}
	}

	return &discordgo.WebhookParams{
		Username:  username,
		AvatarURL: c.AuthorAvatarURL,
		Embeds:    embeds,
	}
}

func footerText(c *content.Content) string {
	if c.Platform == "" {
		return c.AuthorHandle
	}
	return c.AuthorHandle + " · " + c.Platform
}

// clampDescription keeps embeds inside Discord's description limit.
func clampDescription(s string) string {
	const maxLen = 4096
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - len("…")
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
