package urlkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "article slug",
			url:  "https://news.example.com/tech/why-go-won-the-cloud.html",
			want: "Why Go Won The Cloud",
		},
		{
			name: "leading date stripped",
			url:  "https://blog.example.com/2024/01/2024-01-15-shipping-fast-and-slow",
			want: "Shipping Fast And Slow",
		},
		{
			name: "short segments rejected",
			url:  "https://example.com/a/b/c",
			want: "",
		},
		{
			name: "opaque id rejected",
			url:  "https://example.com/dp/B0BCD12345XYZ",
			want: "",
		},
		{
			name: "unparseable",
			url:  "://nope",
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SlugTitle(tc.url))
		})
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "The New York Times", DisplayName("https://www.nytimes.com/2024/01/01/a.html"))
	assert.Equal(t, "BBC", DisplayName("https://news.bbc.co.uk/story"))
	assert.Equal(t, "Bluesky", DisplayName("https://bsky.app/profile/x/post/y"))
	assert.Equal(t, "blog.unknown-site.dev", DisplayName("https://blog.unknown-site.dev/post"))
	assert.Equal(t, "", DisplayName("://bad"))
}
