package sms

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

// ComposeRandom builds a unique demo payload: the identity banner, a short
// random uid, and count distinct emoji glyphs drawn uniformly without
// replacement from the curated catalog. A negative count is treated as its
// absolute value; counts beyond the catalog clamp to the catalog size.
func ComposeRandom(identity string, count int) string {
	if count < 0 {
		count = -count
	}
	if count > len(emojiCatalog) {
		count = len(emojiCatalog)
	}

	picks := make([]string, 0, count)
	for _, idx := range rand.Perm(len(emojiCatalog))[:count] {
		picks = append(picks, emojiCatalog[idx].glyph)
	}

	uid := shortUID()
	parts := []string{identity, uid}
	if len(picks) > 0 {
		parts = append(parts, strings.Join(picks, " "))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// shortUID returns the first segment of a random uuid4 (8 hex chars).
func shortUID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
