// Package relevance extracts contextual snippets from event description
// text. Matching is a literal, case-sensitive substring search over the
// configured genre terms; no attempt is made to understand the text.
package relevance

import (
	"strings"
	"unicode/utf8"
)

// window is how many characters of context are kept on each side of a match.
const window = 100

// ellipsis marks a snippet truncated at a text boundary.
const ellipsis = "…"

// Extract scans text for every non-overlapping occurrence of each term and
// returns one snippet per match: the term plus up to window characters of
// surrounding context, trimmed to the text bounds, with an ellipsis marker
// on truncated sides and internal newlines collapsed to spaces.
//
// After a match the scan resumes past the emitted snippet, so a term
// appearing twice inside one context window yields a single snippet. The
// result is never nil: an empty slice means the text was evaluated and no
// term occurred.
func Extract(text string, terms []string) []string {
	snippets := []string{}
	if text == "" {
		return snippets
	}

	for _, term := range terms {
		if term == "" {
			continue
		}
		pos := 0
		for {
			i := strings.Index(text[pos:], term)
			if i < 0 {
				break
			}
			i += pos

			start := i - window
			if start < 0 {
				start = 0
			}
			end := i + len(term) + window
			if end > len(text) {
				end = len(text)
			}
			// Byte offsets can land inside a multi-byte rune; widen to
			// rune boundaries.
			for start > 0 && !utf8.RuneStart(text[start]) {
				start--
			}
			for end < len(text) && !utf8.RuneStart(text[end]) {
				end++
			}

			snippet := flatten(text[start:end])
			if start > 0 {
				snippet = ellipsis + snippet
			}
			if end < len(text) {
				snippet = snippet + ellipsis
			}
			snippets = append(snippets, snippet)

			pos = end
		}
	}

	return snippets
}

// flatten collapses newlines to spaces so snippets stay single-line.
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
