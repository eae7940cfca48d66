package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSufficient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    *Content
		want bool
	}{
		{name: "nil record", c: nil, want: false},
		{name: "empty record", c: &Content{}, want: false},
		{name: "title only", c: &Content{Title: "A headline"}, want: true},
		{name: "body only", c: &Content{Body: "post text"}, want: true},
		{name: "images only", c: &Content{Images: []string{"https://a/b.png"}}, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.c.Sufficient())
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutcomeFailed, Classify(nil, nil))
	assert.Equal(t, OutcomeFailed, Classify(&Content{Title: "x"}, errors.New("boom")))
	assert.Equal(t, OutcomeInsufficient, Classify(&Content{Images: []string{"u"}}, nil))
	assert.Equal(t, OutcomeSuccess, Classify(&Content{Body: "text"}, nil))
}

func TestStripMarkup(t *testing.T) {
	t.Parallel()

	in := `<p>Hello <b>world</b> &amp; friends</p><p>second<br>line</p>`
	got := StripMarkup(in)
	assert.Equal(t, "Hello world & friends\n\nsecond\nline", got)

	assert.Equal(t, "", StripMarkup(""))
	assert.Equal(t, "plain", StripMarkup("plain"))
}
