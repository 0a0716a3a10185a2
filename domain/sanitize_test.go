package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeRoomID_Strips_Disallowed_Characters(t *testing.T) {
	req := require.New(t)

	roomID, ok := SanitizeRoomID("my room #1!")
	req.True(ok)
	req.Equal(RoomID("myroom1"), roomID)

	roomID, ok = SanitizeRoomID("design-review-42")
	req.True(ok)
	req.Equal(RoomID("design-review-42"), roomID)
}

func TestSanitizeRoomID_Rejects_Unusable_Input(t *testing.T) {
	req := require.New(t)

	_, ok := SanitizeRoomID("")
	req.False(ok)

	// Nothing survives stripping
	_, ok = SanitizeRoomID("!!! ???")
	req.False(ok)
}

func TestSanitizeRoomID_Truncates_To_Fifty_Characters(t *testing.T) {
	req := require.New(t)

	roomID, ok := SanitizeRoomID(strings.Repeat("a", 80))
	req.True(ok)
	req.Len(string(roomID), 50)
}

func TestSanitizeUserID_Same_Policy_As_Room_Ids(t *testing.T) {
	req := require.New(t)

	userID, ok := SanitizeUserID("al ice!")
	req.True(ok)
	req.Equal(UserID("alice"), userID)

	_, ok = SanitizeUserID("   ")
	req.False(ok)
}

func TestSanitizeText_Truncates_Without_Error(t *testing.T) {
	req := require.New(t)

	req.Equal("hello", SanitizeText("hello", 100))
	req.Equal("hel", SanitizeText("hello", 3))
	req.Equal("", SanitizeText("hello", 0))
}

func TestSanitizeText_Never_Splits_A_MultiByte_Rune(t *testing.T) {
	req := require.New(t)

	// The limit falls inside the two-byte 'é': the whole rune goes
	req.Equal("h", SanitizeText("héllo", 2))
	req.Equal("hé", SanitizeText("héllo", 3))

	// Three-byte runes, limit mid-rune
	req.Equal("界", SanitizeText("界面", 4))
	req.Equal("界", SanitizeText("界面", 5))

	long := strings.Repeat("界", 500)
	truncated := SanitizeText(long, 1000)
	req.True(utf8.ValidString(truncated))
	req.LessOrEqual(len(truncated), 1000)
}
