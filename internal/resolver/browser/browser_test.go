package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLooksLikeChallenge(t *testing.T) {
	t.Parallel()

	assert.True(t, looksLikeChallenge("Please verify you are human"))
	assert.True(t, looksLikeChallenge("", "Access Denied"))
	assert.True(t, looksLikeChallenge("One moment...", "checking CAPTCHA"))
	assert.False(t, looksLikeChallenge("A perfectly fine headline", "and body"))
	assert.False(t, looksLikeChallenge())
}

func TestFetchRemoteRenderWinsFirst(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/content", r.URL.Path)
		assert.Equal(t, "sekrit", r.URL.Query().Get("token"))
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Rendered Title">
			<meta property="og:description" content="Rendered description.">
		</head><body></body></html>`)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{RemoteRenderURL: srv.URL, RemoteRenderToken: "sekrit"}, zap.NewNop())
	c, err := r.Fetch(context.Background(), "https://example.com/article/some-long-interesting-story")
	require.NoError(t, err)
	require.NotNil(t, c)
	// Remote render outranks the slug heuristic.
	assert.Equal(t, "Rendered Title", c.Title)
	assert.Equal(t, "Rendered description.", c.Body)
}

func TestFetchRemoteRenderRejectsChallenge(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>One moment</title></head>
			<body>Please verify you are human before continuing.</body></html>`)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{RemoteRenderURL: srv.URL, RemoteRenderToken: "sekrit"}, zap.NewNop())
	c, err := r.fetchRemoteRender(context.Background(), "https://example.com/x")
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestFetchExtractAPI(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://hard.example.com/post/1", r.URL.Query().Get("url"))
		fmt.Fprint(w, `{"status":"success","data":{
			"title":"Extracted Title",
			"description":"Extracted description.",
			"publisher":"Hard Site",
			"image":{"url":"https://cdn.hard/img.png"}
		}}`)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{ExtractAPIURL: srv.URL, HardDomains: []string{"hard.example.com"}}, zap.NewNop())
	c, err := r.fetchExtractAPI(context.Background(), "https://hard.example.com/post/1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Extracted Title", c.Title)
	assert.Equal(t, "Hard Site", c.Platform)
	assert.Equal(t, []string{"https://cdn.hard/img.png"}, c.Images)
}

func TestFetchExtractAPIOnlyForHardDomains(t *testing.T) {
	t.Parallel()

	r := New(Config{ExtractAPIURL: "https://extract.example", HardDomains: []string{"hard.example.com"}}, zap.NewNop())
	var s *strategy
	for i := range r.strategies {
		if r.strategies[i].name == "extract_api" {
			s = &r.strategies[i]
		}
	}
	require.NotNil(t, s)
	assert.True(t, s.applies("https://hard.example.com/post/1"))
	assert.False(t, s.applies("https://easy.example.com/post/1"))
}

func TestFetchSlugHeuristic(t *testing.T) {
	t.Parallel()

	// No remote renderer, no extract API: the slug strategy answers before
	// the local browser is ever launched.
	r := New(Config{}, zap.NewNop())
	c, err := r.Fetch(context.Background(), "https://news.example.com/2024/03/05/the-thing-that-happened-today")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "The Thing That Happened Today", c.Title)
	assert.Equal(t, "news.example.com", c.Platform)
}

func TestExtractRenderedFallbacks(t *testing.T) {
	t.Parallel()

	html := `<html><head><title></title></head><body>
		<h1>Heading Title</h1>
		<article>
			<p>short</p>
			<p>` + strings.Repeat("long paragraph text ", 8) + `</p>
		</article>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	c := extractRendered(doc, "https://example.com/post")
	assert.Equal(t, "Heading Title", c.Title)
	assert.Contains(t, c.Body, "long paragraph text")
}
