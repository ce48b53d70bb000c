package openai

import "strings"

// maxInputRunes bounds the text sent to the model.
const maxInputRunes = 8000

// scrubString collapses runs of whitespace, drops control characters and
// truncates the text to maxInputRunes.
func scrubString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > maxInputRunes {
		s = string(runes[:maxInputRunes])
	}
	return s
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
