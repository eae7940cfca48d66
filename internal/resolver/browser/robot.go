package browser

import "strings"

// challengePhrases flag rendered pages that are really bot walls. A 2xx page
// matching any of these is treated as a failed fetch, not content.
var challengePhrases = []string{
	"are you a robot",
	"captcha",
	"verify you are human",
	"please verify",
	"access denied",
	"blocked",
}

// looksLikeChallenge reports whether any of the given text fields reads like
// a bot-verification page. Matching is case-insensitive substring search,
// the same shape as the JS-detection keyword scan it grew out of.
func looksLikeChallenge(texts ...string) bool {
	for _, t := range texts {
		if t == "" {
			continue
		}
		lower := strings.ToLower(t)
		for _, phrase := range challengePhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	return false
}
