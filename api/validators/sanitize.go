package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SanitizeString normalizes free-text input to NFC, drops control characters,
// collapses whitespace runs to a single space and caps the result at maxLen
// runes. A maxLen of zero or less disables the cap.
func SanitizeString(input string, maxLen int) string {
	normalized := norm.NFC.String(input)

	var b strings.Builder
	b.Grow(len(normalized))
	pendingSpace := false
	for _, r := range normalized {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		runes := []rune(out)
		out = strings.TrimRightFunc(string(runes[:maxLen]), unicode.IsSpace)
	}
	return out
}
