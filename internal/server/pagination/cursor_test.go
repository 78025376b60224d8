package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundtrip(t *testing.T) {
	firstSeen := time.Date(2026, 3, 1, 10, 30, 0, 123456789, time.UTC)

	cursor := EncodeCursor(firstSeen, 42)
	gotTime, gotID, err := DecodeCursor(cursor)

	require.NoError(t, err)
	assert.True(t, firstSeen.Equal(gotTime))
	assert.Equal(t, int64(42), gotID)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, cursor := range []string{
		"not-base64!!!",
		"aGVsbG8=",         // valid base64, wrong format
		"MjAyNi0wMy0wMQ==", // missing separator
	} {
		_, _, err := DecodeCursor(cursor)
		assert.Error(t, err, "cursor %q", cursor)
	}
}
