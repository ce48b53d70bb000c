package openai

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/docingest/ai"
	"github.com/poiesic/docingest/core"
)

const extractionPromptTemplate = `Extract the requested features from the given text and return them as JSON.

Output ONLY a single JSON object. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }.

The object may contain only these keys, each with a value of the stated kind:
%s

Rules:
- Values must be plain JSON scalars. Never use arrays or nested objects.
- Omit a key when the text gives no basis for its value. Do not hallucinate.
- Keyword values are short, lowercase and exact, never sentences.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Keys:
- "topic": short exact string, lowercase
- "positive": true or false
- "word_count": integer
Input: "Our quarterly results beat every forecast."
Output:
{"topic":"finance","positive":true,"word_count":6}`

// buildSystemPrompt lists the requested features in a stable order.
func buildSystemPrompt(fields map[string]core.FieldSpec) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "- %q: %s\n", name, ai.TypeHints[fields[name].Type])
	}
	return fmt.Sprintf(extractionPromptTemplate, strings.TrimRight(b.String(), "\n"))
}
