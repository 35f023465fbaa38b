package sms

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
)

// Name substrings that disqualify an emoji from the random catalog. Skin-tone,
// gender, flag, clock-face, and colored-shape families all land here.
var excludedNameParts = []string{
	"ball",
	"black",
	"brown",
	"button",
	"clock",
	"cloud",
	"face",
	"flag",
	"globe",
	"green",
	"hand",
	"man",
	"men",
	"medal",
	"moon",
	"people",
	"person",
	"pointing",
	"speak",
	"thirty",
	"white",
	"woman",
	"women",
	"yellow",
}

type catalogEntry struct {
	name  string
	glyph string
}

// emojiCatalog is the curated pick list: single-codepoint glyphs only, no
// excluded name families, sorted by readable name.
var emojiCatalog = buildEmojiCatalog()

func buildEmojiCatalog() []catalogEntry {
	seen := make(map[string]struct{})
	var entries []catalogEntry
	for _, em := range gomoji.AllEmojis() {
		if utf8.RuneCountInString(em.Character) != 1 {
			// multi-codepoint sequences (flags, ZWJ combinations) are out
			continue
		}
		name := normalizeEmojiName(em.Slug)
		if name == "" || hasExcludedPart(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, catalogEntry{name: name, glyph: em.Character})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries
}

// normalizeEmojiName converts an emoji slug into the readable token form used
// inside sanitized bodies, e.g. "thumbs-up" -> "thumbs_up".
func normalizeEmojiName(slug string) string {
	name := strings.ToLower(strings.TrimSpace(slug))
	name = strings.ReplaceAll(name, "’", "")
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

func hasExcludedPart(name string) bool {
	for _, part := range excludedNameParts {
		if strings.Contains(name, part) {
			return true
		}
	}
	return false
}

// CatalogSize reports how many glyphs the curated catalog holds.
func CatalogSize() int {
	return len(emojiCatalog)
}
