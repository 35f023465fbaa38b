package sms

import (
	"regexp"
	"sort"
	"strings"

	"github.com/forPelevin/gomoji"
)

var (
	spaceRuns  = regexp.MustCompile(` +`)
	emojiToken = regexp.MustCompile(`\{[a-z0-9_]+\}`)
)

// SanitizeBody converts a raw SMS body into its stored form:
// every emoji grapheme becomes a delimited readable token ('👍' -> "{thumbs_up}"),
// tabs and newlines become single spaces, runs of spaces collapse to one, and
// surrounding whitespace is trimmed. The result is idempotent: sanitizing a
// sanitized string returns it unchanged.
func SanitizeBody(raw string) string {
	text := demojize(raw)
	text = strings.ReplaceAll(text, "\t", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// demojize replaces each emoji grapheme with its {name} token. Longer
// sequences are replaced before shorter ones so a multi-codepoint emoji maps
// to a single token instead of being split by one of its components.
func demojize(text string) string {
	found := gomoji.FindAll(text)
	if len(found) == 0 {
		return text
	}
	sort.Slice(found, func(i, j int) bool {
		return len(found[i].Character) > len(found[j].Character)
	})
	for _, em := range found {
		token := "{" + normalizeEmojiName(em.Slug) + "}"
		text = strings.ReplaceAll(text, em.Character, token)
	}
	return text
}

// CountEmojiTokens reports the number of distinct emoji tokens in a sanitized
// body.
func CountEmojiTokens(body string) int {
	matches := emojiToken.FindAllString(body, -1)
	if len(matches) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		distinct[m] = struct{}{}
	}
	return len(distinct)
}
