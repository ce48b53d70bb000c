package parsers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docingest/core"
)

// Field names produced by Text.
const (
	FieldText  = "text"
	FieldChars = "chars"
	FieldWords = "words"
	FieldLines = "lines"
)

// Text returns a parser for raw text items. Strings, byte slices and
// fmt.Stringer values are accepted. The result holds the trimmed text with
// its character, word and line counts.
func Text() core.ParserFunc {
	return func(item core.SourceItem) (core.Result, error) {
		s, err := itemText(item)
		if err != nil {
			return nil, err
		}
		return textStats(strings.TrimSpace(s)), nil
	}
}

func textStats(s string) core.Result {
	lines := 0
	if s != "" {
		lines = strings.Count(s, "\n") + 1
	}
	return core.Result{
		FieldText:  s,
		FieldChars: utf8.RuneCountInString(s),
		FieldWords: len(strings.Fields(s)),
		FieldLines: lines,
	}
}

func itemText(item core.SourceItem) (string, error) {
	switch v := item.(type) {
	case string:
		return v, nil
	case []byte:
		if !utf8.Valid(v) {
			return "", fmt.Errorf("%w: invalid UTF-8", ErrUnsupportedItem)
		}
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedItem, item)
	}
}
