// Package yamlutil provides shared YAML utilities used across descvis.
package yamlutil

import (
	"bytes"
	"regexp"
)

// docSeparator matches YAML document separators: a line containing only "---"
// optionally followed by whitespace.
var docSeparator = regexp.MustCompile(`(?m)^---\s*$`)

// Document is one document of a multi-document YAML stream.
type Document struct {
	// Index is the position among the non-empty documents, starting at 0.
	Index int

	// Line is the 1-based line of the stream holding the first content of
	// the document.
	Line int

	// Body is the raw document without the leading "---" separator.
	Body []byte
}

// Documents splits a multi-document YAML byte slice into individual
// documents, filtering out empty ones and recording where each starts.
func Documents(data []byte) []Document {
	var (
		docs  []Document
		start int
	)

	emit := func(end int) {
		part := data[start:end]
		if len(bytes.TrimSpace(part)) == 0 {
			return
		}

		lead := len(part) - len(bytes.TrimLeft(part, " \t\r\n"))

		docs = append(docs, Document{
			Index: len(docs),
			Line:  bytes.Count(data[:start+lead], []byte("\n")) + 1,
			Body:  part,
		})
	}

	for _, loc := range docSeparator.FindAllIndex(data, -1) {
		emit(loc[0])
		start = loc[1]
	}

	emit(len(data))

	return docs
}

// SplitDocuments splits a multi-document YAML byte slice into individual
// documents, filtering out empty ones.
func SplitDocuments(data []byte) [][]byte {
	docs := Documents(data)
	out := make([][]byte, len(docs))

	for i, d := range docs {
		out[i] = d.Body
	}

	return out
}
