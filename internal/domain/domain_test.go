package domain

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomID(t *testing.T) {
	id, err := ParseRoomID("  r1 ")
	require.NoError(t, err)
	assert.Equal(t, RoomID("r1"), id)

	_, err = ParseRoomID("   ")
	assert.ErrorIs(t, err, ErrInvalidRoomID)

	_, err = ParseRoomID(strings.Repeat("x", MaxRoomIDLen+1))
	assert.ErrorIs(t, err, ErrInvalidRoomID)
}

func TestNewRoomIDIsUnique(t *testing.T) {
	a, b := NewRoomID(), NewRoomID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "room_"))
	assert.LessOrEqual(t, len(a), MaxRoomIDLen)
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, LanguageTag("sq-AL"), NormalizeLanguage(" sq-AL "))
	assert.Len(t, string(NormalizeLanguage(strings.Repeat("a", 100))), MaxLanguageTagLen)
	assert.Equal(t, LanguageTag("xx-not-a-real-tag"), NormalizeLanguage("xx-not-a-real-tag"))

	// 34 ASCII bytes then a two-byte rune straddling the cap.
	long := strings.Repeat("a", 34) + "ë" + "b"
	got := string(NormalizeLanguage(long))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 34), got)
}

func TestErrorCodeUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("join r1: %w", ErrRoomNotFound)
	assert.Equal(t, "room_not_found", ErrorCode(wrapped))
	assert.Equal(t, "room_already_exists", ErrorCode(ErrRoomAlreadyExists))
	assert.Equal(t, "internal", ErrorCode(fmt.Errorf("boom")))
}
