package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// foldDiacritics strips combining marks after NFD decomposition. 'đ' has no
// decomposition and is mapped by hand.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}

// Generate creates a URL-friendly slug from the given name.
//
// Examples:
//   - "Gạo ST25 túi 5kg" → "gao-st25-tui-5kg"
//   - "Đường   cát!" → "duong-cat"
func Generate(name string) string {
	s := strings.ToLower(foldDiacritics(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SKU derives an upper-case stock code from a product name, truncated to
// maxLen characters without leaving a trailing dash.
func SKU(name string, maxLen int) string {
	s := strings.ToUpper(Generate(name))
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}
