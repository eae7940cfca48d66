package publisher

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
)

// fakeSession scripts the three webhook calls and records what was executed.
type fakeSession struct {
	hooks       []*discordgo.Webhook
	listCalls   int
	createCalls int
	created     *discordgo.Webhook

	execErr  error
	executed []*discordgo.WebhookParams
	execIDs  []string

	sent []string
}

func (f *fakeSession) ChannelWebhooks(string, ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	f.listCalls++
	return f.hooks, nil
}

func (f *fakeSession) WebhookCreate(channelID, name, _ string, _ ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	f.createCalls++
	f.created = &discordgo.Webhook{ID: "created-" + channelID, Token: "tok", Name: name}
	return f.created, nil
}

func (f *fakeSession) WebhookExecute(webhookID, _ string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.execIDs = append(f.execIDs, webhookID)
	if f.execErr != nil {
		err := f.execErr
		f.execErr = nil
		return nil, err
	}
	f.executed = append(f.executed, data)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelMessageSend(_, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, content)
	return &discordgo.Message{}, nil
}

func alicePost() *content.Content {
	return &content.Content{
		Platform:        "Bluesky",
		AuthorName:      "Alice",
		AuthorHandle:    "@alice.bsky.social",
		AuthorAvatarURL: "https://cdn/avatar.png",
		Title:           "",
		Body:            "Just setting up my bsky",
		Images:          []string{},
		SourceURL:       "https://bsky.app/profile/alice.bsky.social/post/1",
	}
}

func TestPublishCreatesWebhookOnceAndReuses(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	p := New(s, "app-1", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), "chan-1", alicePost()))
	require.NoError(t, p.Publish(context.Background(), "chan-1", alicePost()))

	assert.Equal(t, 1, s.listCalls)
	assert.Equal(t, 1, s.createCalls)
	require.Len(t, s.executed, 2)
	assert.Equal(t, "Alice", s.executed[0].Username)
	assert.Equal(t, "https://cdn/avatar.png", s.executed[0].AvatarURL)
}

func TestPublishReusesBotOwnedWebhook(t *testing.T) {
	t.Parallel()

	s := &fakeSession{hooks: []*discordgo.Webhook{
		{ID: "other", ApplicationID: "someone-else", Token: "t0"},
		{ID: "mine", ApplicationID: "app-1", Token: "t1"},
	}}
	p := New(s, "app-1", zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), "chan-1", alicePost()))
	assert.Zero(t, s.createCalls)
	assert.Equal(t, []string{"mine"}, s.execIDs)
}

func TestPublishIdentityGoneEvictsAndRecreates(t *testing.T) {
	t.Parallel()

	s := &fakeSession{execErr: &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownWebhook},
	}}
	p := New(s, "app-1", zap.NewNop())

	err := p.Publish(context.Background(), "chan-1", alicePost())
	assert.ErrorIs(t, err, ErrIdentityGone)

	// The next publish rebuilds the identity instead of reusing the dead one.
	require.NoError(t, p.Publish(context.Background(), "chan-1", alicePost()))
	assert.Equal(t, 2, s.listCalls)
	assert.Equal(t, 2, s.createCalls)
}

func TestPublishOtherErrorKeepsCache(t *testing.T) {
	t.Parallel()

	s := &fakeSession{execErr: &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
	}}
	p := New(s, "app-1", zap.NewNop())

	err := p.Publish(context.Background(), "chan-1", alicePost())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdentityGone)

	require.NoError(t, p.Publish(context.Background(), "chan-1", alicePost()))
	assert.Equal(t, 1, s.listCalls)
}

func TestBuildParamsEmbed(t *testing.T) {
	t.Parallel()

	c := alicePost()
	c.Images = []string{"https://cdn/a.png", "https://cdn/b.png"}
	params := buildParams(c)

	require.Len(t, params.Embeds, 2)
	first := params.Embeds[0]
	assert.Equal(t, "Just setting up my bsky", first.Description)
	assert.Equal(t, c.SourceURL, first.URL)
	require.NotNil(t, first.Image)
	assert.Equal(t, "https://cdn/a.png", first.Image.URL)
	require.NotNil(t, first.Footer)
	assert.Equal(t, "@alice.bsky.social · Bluesky", first.Footer.Text)
	assert.Equal(t, "https://cdn/b.png", params.Embeds[1].Image.URL)
}

func TestBuildParamsUsernameFallsBackToPlatform(t *testing.T) {
	t.Parallel()

	c := &content.Content{Platform: "BBC", Title: "Headline", SourceURL: "https://bbc.co.uk/x"}
	params := buildParams(c)
	assert.Equal(t, "BBC", params.Username)
	require.NotNil(t, params.Embeds[0].Footer)
	assert.Equal(t, "BBC", params.Embeds[0].Footer.Text)
}

func TestClampDescription(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 3000)
	got := clampDescription(long)
	assert.LessOrEqual(t, len(got), 4096)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, "short", clampDescription("short"))
}

func TestPublishText(t *testing.T) {
	t.Parallel()

	s := &fakeSession{}
	p := New(s, "app-1", zap.NewNop())
	require.NoError(t, p.PublishText(context.Background(), "chan-1", "https://youtu.be/abc"))
	assert.Equal(t, []string{"https://youtu.be/abc"}, s.sent)
}
