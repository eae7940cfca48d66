package mastodon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/statuses/109348374023911522", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"content": "<p>Hello <a href=\"#\">fediverse</a> &amp; friends</p>",
			"spoiler_text": "",
			"account": {
				"display_name": "Eugen",
				"acct": "gargron",
				"avatar": "https://files.example/avatar.png"
			},
			"media_attachments": [
				{"type": "image", "url": "https://files.example/full.png", "preview_url": "https://files.example/small.png"},
				{"type": "video", "preview_url": "https://files.example/frame.png"},
				{"type": "audio", "url": "https://files.example/sound.mp3"}
			]
		}`)
	}))
	t.Cleanup(srv.Close)

	r := New(5*time.Second, zap.NewNop())
	c, err := r.Fetch(context.Background(), srv.URL+"/@gargron/109348374023911522")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, "Mastodon", c.Platform)
	assert.Equal(t, "Eugen", c.AuthorName)
	assert.Equal(t, "@gargron", c.AuthorHandle)
	assert.Equal(t, "Hello fediverse & friends", c.Body)
	// Full asset preferred over preview; audio attachments skipped.
	assert.Equal(t, []string{"https://files.example/full.png", "https://files.example/frame.png"}, c.Images)
}

func TestFetchShapeMismatch(t *testing.T) {
	t.Parallel()

	r := New(time.Second, zap.NewNop())
	c, err := r.Fetch(context.Background(), "https://mastodon.social/about")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestFetchStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	r := New(time.Second, zap.NewNop())
	c, err := r.Fetch(context.Background(), srv.URL+"/@ghost/123")
	assert.Error(t, err)
	assert.Nil(t, c)
}
