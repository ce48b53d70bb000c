package parsers

import (
	"strings"

	"github.com/poiesic/docingest/core"
)

// Example returns the demonstration parser: every result carries version 3,
// and another_field is set to true when the item contains "Hello".
// Items that are not text never carry another_field.
func Example() core.ParserFunc {
	return func(item core.SourceItem) (core.Result, error) {
		result := core.Result{"version": 3}
		s, err := itemText(item)
		if err != nil {
			return result, nil
		}
		if strings.Contains(s, "Hello") {
			result["another_field"] = true
		}
		return result, nil
	}
}

// ExampleDoctype is the schema matching the results of Example.
func ExampleDoctype() core.Doctype {
	return core.Doctype{
		Name: "example",
		Fields: map[string]core.FieldSpec{
			"version":       core.Field(core.FieldTypeLong),
			"another_field": core.Field(core.FieldTypeBoolean),
		},
	}
}
