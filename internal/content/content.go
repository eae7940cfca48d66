// Package content defines the normalized record every resolver tier produces
// and the outcome values that drive tier escalation.
package content

import "context"

// Content is the platform-agnostic record a resolver maps its source into.
// Images is always non-nil on records returned by a resolver; an empty slice
// means the post carries no media.
type Content struct {
	Platform        string   `json:"platform"`
	AuthorName      string   `json:"author_name,omitempty"`
	AuthorHandle    string   `json:"author_handle,omitempty"`
	AuthorAvatarURL string   `json:"author_avatar_url,omitempty"`
	Title           string   `json:"title,omitempty"`
	Body            string   `json:"body,omitempty"`
	Images          []string `json:"images"`
	SourceURL       string   `json:"source_url"`
}

// Sufficient reports whether the record meets the minimum bar for a tier
// success: a non-empty title or body.
func (c *Content) Sufficient() bool {
	if c == nil {
		return false
	}
	return c.Title != "" || c.Body != ""
}

// Outcome classifies a single tier attempt.
type Outcome int

// Tier outcomes, ordered from worst to best.
const (
	OutcomeFailed Outcome = iota
	OutcomeInsufficient
	OutcomeSuccess
)

// String implements fmt.Stringer for metric labels.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInsufficient:
		return "insufficient"
	default:
		return "failed"
	}
}

// Classify maps a resolver result to an Outcome. A nil record or an error is
// a failure; a record without title and body is insufficient.
func Classify(c *Content, err error) Outcome {
	switch {
	case err != nil || c == nil:
		return OutcomeFailed
	case !c.Sufficient():
		return OutcomeInsufficient
	default:
		return OutcomeSuccess
	}
}

// Resolver fetches a URL and maps it into a Content record. Returning
// (nil, nil) means the resolver had nothing usable; errors never carry past
// the orchestrator, which treats them the same as nil.
type Resolver interface {
	Fetch(ctx context.Context, rawURL string) (*Content, error)
}
