package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/resolver/meta"
	"github.com/declutterbot/declutter/internal/urlkit"
)

// blockedResourcePatterns lists subresource categories a metadata fetch never
// needs. Blocking them keeps renders fast and cheap.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3", "*.m4a",
}

// contentSelectors are scanned in order for the first substantial paragraph
// when the rendered page carries no description meta tag.
var contentSelectors = []string{
	"article p",
	"main p",
	`[role="main"] p`,
	".post-content p",
	".article-body p",
	".entry-content p",
	".story-body p",
	"#content p",
	".content p",
}

const minParagraphLen = 80

// localBrowser owns the process-wide headless Chrome. It is launched lazily;
// concurrent first callers share one in-flight launch so only a single
// browser process ever starts. Any navigation fault tears the browser down
// so the next call relaunches from scratch.
type localBrowser struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	inflight      *launch
}

type launch struct {
	done chan struct{}
	err  error
}

func newLocalBrowser(cfg Config, logger *zap.Logger) *localBrowser {
	return &localBrowser{cfg: cfg, logger: logger}
}

// acquire returns the shared browser context, launching the browser if
// needed. A failed launch propagates to every waiter and clears the
// in-flight marker so a later call can retry.
func (l *localBrowser) acquire(ctx context.Context) (context.Context, error) {
	for {
		l.mu.Lock()
		if l.browserCtx != nil {
			bctx := l.browserCtx
			l.mu.Unlock()
			return bctx, nil
		}
		if l.inflight != nil {
			in := l.inflight
			l.mu.Unlock()
			select {
			case <-in.done:
			case <-ctx.Done():
				return nil, fmt.Errorf("wait for browser launch: %w", ctx.Err())
			}
			if in.err != nil {
				return nil, in.err
			}
			continue
		}
		in := &launch{done: make(chan struct{})}
		l.inflight = in
		l.mu.Unlock()

		bctx, allocCancel, browserCancel, err := l.launch()

		l.mu.Lock()
		l.inflight = nil
		if err == nil {
			l.browserCtx = bctx
			l.allocCancel = allocCancel
			l.browserCancel = browserCancel
		}
		l.mu.Unlock()

		in.err = err
		close(in.done)
		if err != nil {
			return nil, err
		}
		return bctx, nil
	}
}

func (l *localBrowser) launch() (context.Context, context.CancelFunc, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.UserAgent(l.cfg.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser process to start now, so launch
	// failures surface here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, nil, fmt.Errorf("launch headless browser: %w", err)
	}
	l.logger.Info("headless browser launched")
	return browserCtx, allocCancel, browserCancel, nil
}

// teardown kills the shared browser. Safe to call when nothing is running.
func (l *localBrowser) teardown() {
	l.mu.Lock()
	browserCancel, allocCancel := l.browserCancel, l.allocCancel
	l.browserCtx = nil
	l.browserCancel = nil
	l.allocCancel = nil
	l.mu.Unlock()

	if browserCancel != nil {
		browserCancel()
	}
	if allocCancel != nil {
		allocCancel()
	}
	if browserCancel != nil || allocCancel != nil {
		l.logger.Info("headless browser torn down")
	}
}

// fetch renders the page in an isolated tab and extracts content from the
// settled DOM. The tab is closed on every exit path; a browser-level fault
// additionally tears down the shared process.
func (l *localBrowser) fetch(ctx context.Context, rawURL string) (*content.Content, error) {
	bctx, err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, closeTab := chromedp.NewContext(bctx)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, l.cfg.NavTimeout)
	defer cancel()

	var html string
	actions := []chromedp.Action{
		l.fingerprintAction(),
		chromedp.EmulateViewport(1366, 768),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(l.cfg.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		// Whatever broke the session could poison later tabs too.
		l.teardown()
		return nil, fmt.Errorf("headless navigation: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered page: %w", err)
	}
	return extractRendered(doc, rawURL), nil
}

func (l *localBrowser) fingerprintAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := network.SetBlockedURLs(blockedResourcePatterns).Do(ctx); err != nil {
			return fmt.Errorf("block subresources: %w", err)
		}
		headers := network.Headers{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		ua := emulation.SetUserAgentOverride(l.cfg.UserAgent).
			WithAcceptLanguage("en-US").
			WithPlatform("Win32")
		if err := ua.Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		if err := emulation.SetTimezoneOverride("America/New_York").Do(ctx); err != nil {
			return fmt.Errorf("set timezone: %w", err)
		}
		return nil
	})
}

// extractRendered maps a rendered document to content: the meta triad first,
// then a content-container paragraph scan for the body, then heading and
// domain fallbacks for the title.
func extractRendered(doc *goquery.Document, rawURL string) *content.Content {
	c := meta.ExtractDoc(doc, rawURL)
	if c.Body == "" {
		c.Body = firstParagraph(doc)
	}
	if c.Title == "" {
		c.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if c.Title == "" {
		c.Title = urlkit.DisplayName(rawURL)
	}
	return c
}

func firstParagraph(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if len(text) >= minParagraphLen {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
