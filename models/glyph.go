package models

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kyokomi/emoji/v2"
)

// GlyphResolver maps a named decorative glyph (e.g. ":point_right:") to its
// literal string. A nil resolver or a failed lookup is not an error; callers
// fall back to a plain dash.
type GlyphResolver func(name string) (string, bool)

const (
	markerGlyph    = ":point_right:"
	fallbackMarker = "-"
)

// EmojiResolver resolves glyph names against the emoji code table.
func EmojiResolver(name string) (string, bool) {
	glyph, ok := emoji.CodeMap()[name]
	return glyph, ok
}

// marker returns the decorative line marker for HTML renderings. All
// renderers share this so the fallback behavior stays consistent.
func marker(resolve GlyphResolver) string {
	if resolve != nil {
		if glyph, ok := resolve(markerGlyph); ok {
			return glyph
		}
	}
	return fallbackMarker
}

// capitalizeNoSym strips symbol characters from s (keeping letters, digits
// and spaces) and upper-cases the first rune of what remains.
func capitalizeNoSym(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return out
	}

	first, size := utf8.DecodeRuneInString(out)
	return string(unicode.ToUpper(first)) + out[size:]
}
