// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MaxLanguageTagLen = 35

// ConnectionID is server-assigned and never reused across sockets.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// LanguageTag is opaque routing metadata such as "sq-AL" or "en-US".
type LanguageTag string

// NormalizeLanguage trims the tag and caps it at MaxLanguageTagLen bytes,
// cutting only on a rune boundary. It does not check the tag against any
// list of known languages.
func NormalizeLanguage(raw string) LanguageTag {
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxLanguageTagLen {
		cut := MaxLanguageTagLen
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return LanguageTag(raw)
}
