package twitter

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
		assert.Equal(t, "/jack/status/20", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"code": 200,
			"tweet": {
				"text": "just setting up my twttr",
				"url": "https://twitter.com/jack/status/20",
				"author": {
					"name": "jack",
					"screen_name": "jack",
					"avatar_url": "https://pbs.example/jack.jpg"
				},
				"media": {
					"photos": [{"url": "https://pbs.example/photo1.jpg"}],
					"videos": [{"thumbnail_url": "https://pbs.example/thumb1.jpg"}]
				}
			}
		}`)
	}))
	t.Cleanup(srv.Close)

	r := New(5*time.Second, zap.NewNop()).WithBaseURL(srv.URL)
	c, err := r.Fetch(context.Background(), "https://x.com/jack/status/20")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, "Twitter", c.Platform)
	assert.Equal(t, "jack", c.AuthorName)
	assert.Equal(t, "@jack", c.AuthorHandle)
	assert.Equal(t, "just setting up my twttr", c.Body)
	assert.Equal(t, []string{"https://pbs.example/photo1.jpg", "https://pbs.example/thumb1.jpg"}, c.Images)
	assert.Equal(t, "https://twitter.com/jack/status/20", c.SourceURL)
}

func TestFetchShapeMismatch(t *testing.T) {
	t.Parallel()

	r := New(time.Second, zap.NewNop())
	c, err := r.Fetch(context.Background(), "https://x.com/jack")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestFetchMirrorFailureCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code": 401, "message": "PRIVATE_TWEET"}`)
	}))
	t.Cleanup(srv.Close)

	r := New(time.Second, zap.NewNop()).WithBaseURL(srv.URL)
	c, err := r.Fetch(context.Background(), "https://twitter.com/someone/status/99")
	assert.Error(t, err)
	assert.Nil(t, c)
}
