// Package parsers provides ready-made parser functions for ingestion.
//
// Every constructor returns a core.ParserFunc:
//   - Text: raw strings with simple statistics
//   - File: local files with charset decoding and a content digest
//   - URL: web pages reduced to their readable article
//   - LLM: features extracted from text by a language model
//   - Example: the minimal demonstration parser
//
// Parsers run inside dispatch workers. They receive no context, so those that
// perform I/O bound every call with their own timeout.
package parsers
