package meta

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/declutterbot/declutter/internal/content"
	"github.com/declutterbot/declutter/internal/urlkit"
)

// ExtractDoc pulls the open-graph / twitter-card / generic meta triad out of
// a parsed document. Priority within each field: og, then twitter, then the
// generic tag. Image URLs are resolved against pageURL. The record is
// returned even when no title was found; callers judge sufficiency.
func ExtractDoc(doc *goquery.Document, pageURL string) *content.Content {
	title := firstOf(
		metaProp(doc, "og:title"),
		metaName(doc, "twitter:title"),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	description := firstOf(
		metaProp(doc, "og:description"),
		metaName(doc, "twitter:description"),
		metaName(doc, "description"),
	)
	image := firstOf(
		metaProp(doc, "og:image:secure_url"),
		metaProp(doc, "og:image"),
		metaName(doc, "twitter:image"),
		metaName(doc, "twitter:image:src"),
	)
	siteName := firstOf(
		metaProp(doc, "og:site_name"),
		urlkit.DisplayName(pageURL),
	)
	author := firstOf(
		metaName(doc, "author"),
		metaProp(doc, "article:author"),
	)
	source := firstOf(metaProp(doc, "og:url"), pageURL)

	images := []string{}
	if abs := urlkit.Absolute(pageURL, image); abs != "" {
		images = append(images, abs)
	}
	return &content.Content{
		Platform:   siteName,
		AuthorName: author,
		Title:      title,
		Body:       description,
		Images:     images,
		SourceURL:  source,
	}
}

func metaProp(doc *goquery.Document, prop string) string {
	sel := doc.Find(`meta[property="` + prop + `"]`).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

func metaName(doc *goquery.Document, name string) string {
	sel := doc.Find(`meta[name="` + name + `"]`).First()
	v, _ := sel.Attr("content")
	return strings.TrimSpace(v)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
