package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_SiteIdentifierWins(t *testing.T) {
	node := map[string]any{"id": "site-42", "slug": "some-slug"}
	assert.Equal(t, "site-42", Identity(node, "Title", "https://example.com/a"))
}

func TestIdentity_ProbesIdentifierKeysInOrder(t *testing.T) {
	assert.Equal(t, "some-slug",
		Identity(map[string]any{"slug": "some-slug"}, "Title", "https://example.com/a"))
	assert.Equal(t, "canon",
		Identity(map[string]any{"canonicalSlug": "canon"}, "Title", "https://example.com/a"))
}

func TestIdentity_NumericIdentifier(t *testing.T) {
	node := map[string]any{"id": float64(35703)}
	assert.Equal(t, "35703", Identity(node, "Title", "https://example.com/a"))
}

func TestIdentity_FallbackHashIsStable(t *testing.T) {
	node := map[string]any{}
	first := Identity(node, "Title", "https://example.com/a")
	second := Identity(node, "Title", "https://example.com/a")

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // sha256 hex
}

func TestIdentity_FallbackIgnoresSurroundingWhitespace(t *testing.T) {
	node := map[string]any{}
	assert.Equal(t,
		Identity(node, "Title", "https://example.com/a"),
		Identity(node, "  Title \n", " https://example.com/a "))
}

func TestIdentity_DistinctArticlesDoNotCollide(t *testing.T) {
	node := map[string]any{}
	a := Identity(node, "Title A", "https://example.com/a")
	b := Identity(node, "Title B", "https://example.com/b")
	sameTitle := Identity(node, "Title A", "https://example.com/c")

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, sameTitle)
}
