package event

import "strings"

// Window titles arrive as free-form strings like
// "main.go - myproject - Visual Studio Code". For word-level label matching
// the title is normalized into a deduplicated word list.

var titleDashes = strings.NewReplacer("–", "-", "—", "-")

const titleSeparators = "._-,!?;: "

// TitleWords splits a window title into normalized, order-preserving unique
// words. Dash variants are unified first, then segments are split on the
// separator set and trimmed.
func TitleWords(title string) []string {
	normalized := titleDashes.Replace(title)

	segments := strings.FieldsFunc(normalized, func(r rune) bool {
		return strings.ContainsRune(titleSeparators, r)
	})

	seen := make(map[string]bool, len(segments))
	words := make([]string, 0, len(segments))
	for _, segment := range segments {
		lower := strings.ToLower(segment)
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		words = append(words, segment)
	}
	return words
}
