// Package filter implements event-name exclusion filters.
//
// A band's configuration may list terms whose matching events are never
// worth a detail fetch ("Open Mic", "Pub Quiz", tribute nights). Each term
// is either a plain case-insensitive substring or, when wrapped in slashes,
// a regular expression:
//
//	filters: ["Open Mic", "/(?i)karaoke|quiz night/"]
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Exclusions is a compiled set of exclusion terms.
type Exclusions struct {
	substrings []string // lower-cased
	patterns   []*regexp.Regexp
}

// Compile parses a term list into an Exclusions set. Terms of the form
// "/expr/" compile as regular expressions; everything else matches as a
// case-insensitive substring. An invalid expression fails the whole compile
// so configuration mistakes surface at load time, not mid-run.
func Compile(terms []string) (*Exclusions, error) {
	e := &Exclusions{}
	for _, term := range terms {
		if term == "" {
			continue
		}
		if len(term) > 2 && strings.HasPrefix(term, "/") && strings.HasSuffix(term, "/") {
			re, err := regexp.Compile(term[1 : len(term)-1])
			if err != nil {
				return nil, fmt.Errorf("compiling filter %q: %w", term, err)
			}
			e.patterns = append(e.patterns, re)
			continue
		}
		e.substrings = append(e.substrings, strings.ToLower(term))
	}
	return e, nil
}

// Empty reports whether the set has no active terms.
func (e *Exclusions) Empty() bool {
	return e == nil || (len(e.substrings) == 0 && len(e.patterns) == 0)
}

// Match reports whether an event name hits any exclusion term.
func (e *Exclusions) Match(name string) bool {
	if e == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, sub := range e.substrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	for _, re := range e.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
