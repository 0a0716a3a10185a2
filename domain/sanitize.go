package domain

import (
	"strings"
	"unicode/utf8"
)

const maxIdentifierLength = 50

// identifiers keep only [A-Za-z0-9-]; everything else is noise from the wire.
func stripIdentifier(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > maxIdentifierLength {
		s = s[:maxIdentifierLength]
	}
	return s
}

// SanitizeRoomID normalizes a raw room identifier.
// It never fails: unusable input yields ("", false).
func SanitizeRoomID(raw string) (RoomID, bool) {
	s := stripIdentifier(raw)
	if s == "" {
		return "", false
	}
	return RoomID(s), true
}

// SanitizeUserID normalizes a raw user identifier.
// Same character policy as room ids, independent namespace.
func SanitizeUserID(raw string) (UserID, bool) {
	s := stripIdentifier(raw)
	if s == "" {
		return "", false
	}
	return UserID(s), true
}

// SanitizeText bounds a document payload to maxLen bytes.
// Truncation is the declared policy, not a failure. The cut always lands on
// a rune boundary: a split multi-byte rune would leave invalid UTF-8, and the
// persisted copy would no longer match the in-memory text.
func SanitizeText(raw string, maxLen int) string {
	if maxLen < 0 || len(raw) <= maxLen {
		return raw
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}
