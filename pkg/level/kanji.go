package level

import "unicode"

// ExtractKanji returns every Han-script character of text in the order they
// appear. Repeated characters are kept, since each occurrence weighs on the
// profile.
//
// Matching uses the Unicode Script=Han property. A handful of rare marks such
// as 〆 (U+3006) fall outside it; none of them appear in the reference lists.
func ExtractKanji(text string) []string {
	var out []string
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			out = append(out, string(r))
		}
	}
	return out
}

// IsKanji reports whether r belongs to the Han script.
func IsKanji(r rune) bool {
	return unicode.Is(unicode.Han, r)
}
