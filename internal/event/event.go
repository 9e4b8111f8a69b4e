package event

import "strings"

// keySep separates the name and date halves of an identity key. The unit
// separator never survives whitespace normalization, so it cannot collide
// with scraped text.
const keySep = "\x1f"

// Event represents one occurrence at a venue.
//
// Relevance distinguishes three states: nil means the event has not been
// evaluated yet, an empty slice means it was evaluated and no genre term
// matched, and a non-empty slice holds the matching text snippets. The JSON
// tag deliberately omits omitempty so the nil/empty distinction survives a
// round trip through the snapshot file.
type Event struct {
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	Description string   `json:"description,omitempty"` // single-page sites only; stripped before persistence
	DetailLink  string   `json:"detail_link,omitempty"` // two-page sites only
	Relevance   []string `json:"relevance"`
	PageIndex   int      `json:"page_index"`
	Errors      []string `json:"errors,omitempty"`
}

// SiteResult holds one venue's harvested state.
type SiteResult struct {
	URL    string   `json:"url"`
	Events []Event  `json:"events"`
	Errors []string `json:"errors,omitempty"`
}

// NormalizeWhitespace collapses runs of whitespace to a single space and
// trims both ends. An empty or all-whitespace input yields "".
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key computes the identity key for a name/date pair. Two events with equal
// name and date up to whitespace differences produce equal keys.
func Key(name, date string) string {
	return NormalizeWhitespace(name) + keySep + NormalizeWhitespace(date)
}

// Key returns the event's identity key.
func (e *Event) Key() string {
	return Key(e.Name, e.Date)
}

// Resolved reports whether the event needs no further detail resolution:
// either its relevance has been computed, or a terminal error was recorded
// for it. Events with errors are never retried; a permanently broken detail
// page would otherwise be hammered on every run.
func (e *Event) Resolved() bool {
	return e.Relevance != nil || len(e.Errors) > 0
}
