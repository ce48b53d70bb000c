package badger

import "strings"

// Key prefixes for different data types
const (
	indexPrefix    = "idx"
	mappingPrefix  = "map"
	documentPrefix = "doc"
	keySep         = ":"
)

// makeIndexKey generates the marker key of an index.
// Format: idx:index
func makeIndexKey(index string) []byte {
	return []byte(indexPrefix + keySep + index)
}

// makeMappingKey generates the key of a doctype mapping.
// Format: map:index:doctype
func makeMappingKey(index, doctype string) []byte {
	return []byte(mappingPrefix + keySep + index + keySep + doctype)
}

// makeMappingPrefix generates the prefix of every mapping in an index.
// Format: map:index:
func makeMappingPrefix(index string) []byte {
	return []byte(mappingPrefix + keySep + index + keySep)
}

// makeDocumentKey generates the key of a document.
// Format: doc:index:doctype:id
func makeDocumentKey(index, doctype, id string) []byte {
	return []byte(documentPrefix + keySep + index + keySep + doctype + keySep + id)
}

// makeDocumentPrefix generates the prefix of the documents of a doctype, or of
// every document in the index when doctype is empty.
// Format: doc:index: or doc:index:doctype:
func makeDocumentPrefix(index, doctype string) []byte {
	prefix := documentPrefix + keySep + index + keySep
	if doctype != "" {
		prefix += doctype + keySep
	}
	return []byte(prefix)
}

// splitDocumentKey extracts doctype and id from a document key.
// Names never contain the separator, so the first separator after the index
// prefix ends the doctype.
func splitDocumentKey(index string, key []byte) (doctype, id string, ok bool) {
	rest, found := strings.CutPrefix(string(key), string(makeDocumentPrefix(index, "")))
	if !found {
		return "", "", false
	}
	return strings.Cut(rest, keySep)
}
