package scraper

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// identityKeys are probed in order for a site-provided identifier.
var identityKeys = []string{"id", "identifier", "slug", "urlSlug", "canonicalSlug"}

// Identity derives the deduplication key for an article node. A
// site-provided identifier wins; without one the key falls back to a
// digest of title and link, which stays stable across refetches even
// when the site back-dates the article. Two fetches of the same article
// must produce the same key, so every input is trimmed first.
func Identity(node map[string]any, title, link string) string {
	if candidate := stringValue(extractFirst(node, identityKeys...)); candidate != "" {
		return strings.TrimSpace(candidate)
	}
	return hashIdentity(title, link)
}

// hashIdentity is the deterministic fallback for articles the site does
// not identify.
func hashIdentity(title, link string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(title)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(link)))
	return hex.EncodeToString(h.Sum(nil))
}
