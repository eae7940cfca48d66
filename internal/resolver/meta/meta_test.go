package meta

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const articleHTML = `<!DOCTYPE html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="A fine description.">
<meta property="og:image" content="/img/hero.png">
<meta property="og:site_name" content="Example News">
<meta name="author" content="Jane Doe">
</head><body><h1>ignored</h1></body></html>`

func TestFetchExtractsOpenGraph(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articleHTML)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{Timeout: 5 * time.Second}, zap.NewNop())
	c, err := r.Fetch(context.Background(), srv.URL+"/post/1")
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, "OG Title", c.Title)
	assert.Equal(t, "A fine description.", c.Body)
	assert.Equal(t, "Example News", c.Platform)
	assert.Equal(t, "Jane Doe", c.AuthorName)
	assert.Equal(t, []string{srv.URL + "/img/hero.png"}, c.Images)
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestFetchBotFriendlyUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><head><title>t</title></head></html>")
	}))
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "http://")
	hostname := strings.Split(host, ":")[0]

	r := New(Config{
		CrawlerUA:          "declutter-bot/1.0",
		BotFriendlyDomains: []string{hostname},
		Timeout:            5 * time.Second,
	}, zap.NewNop())

	_, err := r.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "declutter-bot/1.0", gotUA)
}

func TestFetchNonHTMLFailsClosed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.7")
	}))
	t.Cleanup(srv.Close)

	r := New(Config{Timeout: 5 * time.Second}, zap.NewNop())
	c, err := r.Fetch(context.Background(), srv.URL+"/report.pdf")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	r := New(Config{Timeout: 5 * time.Second}, zap.NewNop())
	c, err := r.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestExtractDocPriorities(t *testing.T) {
	t.Parallel()

	html := `<html><head>
		<title>Plain Title</title>
		<meta name="twitter:title" content="Twitter Title">
		<meta name="twitter:description" content="Twitter description">
		<meta name="twitter:image" content="https://cdn.example/tw.png">
	</head></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	c := ExtractDoc(doc, "https://blog.example.com/p/1")
	assert.Equal(t, "Twitter Title", c.Title)
	assert.Equal(t, "Twitter description", c.Body)
	assert.Equal(t, []string{"https://cdn.example/tw.png"}, c.Images)
	// No og:site_name: platform label falls back to the domain lookup.
	assert.Equal(t, "blog.example.com", c.Platform)
}

func TestExtractDocTitleTagFallback(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><head><title> Spaced Title </title></head><body></body></html>`))
	require.NoError(t, err)

	c := ExtractDoc(doc, "https://example.com/")
	assert.Equal(t, "Spaced Title", c.Title)
	assert.Empty(t, c.Images)
}
