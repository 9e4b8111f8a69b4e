package event

import "strings"

// NewEvent is one entry in the new-events delta, tagged with the site that
// produced it.
type NewEvent struct {
	SiteURL string `json:"site_url"`
	Event   Event  `json:"event"`
}

// matchKey is the cross-run matching key: identity key plus detail link.
// The detail link acts as a tie-breaker for the rare case where the same
// band plays the same date behind two different detail pages; events without
// links compare on identity alone.
func matchKey(e *Event) string {
	return e.Key() + keySep + strings.TrimSpace(e.DetailLink)
}

// indexSites builds a per-site lookup of events by match key. Within one
// site the first occurrence of a key wins, mirroring discovery order.
func indexSites(sites []SiteResult) map[string]map[string]*Event {
	idx := make(map[string]map[string]*Event, len(sites))
	for i := range sites {
		site := &sites[i]
		byKey := make(map[string]*Event, len(site.Events))
		for j := range site.Events {
			k := matchKey(&site.Events[j])
			if _, ok := byKey[k]; !ok {
				byKey[k] = &site.Events[j]
			}
		}
		idx[site.URL] = byKey
	}
	return idx
}

// CarryForward returns a copy of current in which every event with a match
// in previous inherits the previous run's relevance and error state. Events
// already resolved in current are left untouched, which makes the function
// idempotent. Neither input is modified.
//
// A site present in current but absent from previous passes through
// unchanged; a site present only in previous is dropped.
func CarryForward(previous, current []SiteResult) []SiteResult {
	prevIdx := indexSites(previous)

	out := make([]SiteResult, len(current))
	for i := range current {
		out[i] = cloneSite(&current[i])
		byKey, ok := prevIdx[current[i].URL]
		if !ok {
			continue
		}
		for j := range out[i].Events {
			ev := &out[i].Events[j]
			if ev.Resolved() {
				continue
			}
			if prev, ok := byKey[matchKey(ev)]; ok {
				ev.Relevance = cloneStrings(prev.Relevance)
				ev.Errors = cloneStrings(prev.Errors)
			}
		}
	}
	return out
}

// Clean prepares a harvested result set for persistence: transient
// descriptions are stripped and name/date are whitespace-normalized.
// Normalizing before the snapshot is written keeps whitespace drift from
// causing spurious non-matches in the next run's reconciliation.
func Clean(sites []SiteResult) []SiteResult {
	out := make([]SiteResult, len(sites))
	for i := range sites {
		out[i] = cloneSite(&sites[i])
		for j := range out[i].Events {
			ev := &out[i].Events[j]
			ev.Description = ""
			ev.Name = NormalizeWhitespace(ev.Name)
			ev.Date = NormalizeWhitespace(ev.Date)
		}
	}
	return out
}

// Delta returns the events present in current but absent from previous,
// matched by identity key plus detail link, in site order then discovery
// order. A nil or empty previous yields every current event as new.
func Delta(previous, current []SiteResult) []NewEvent {
	prevIdx := indexSites(previous)

	var delta []NewEvent
	for i := range current {
		site := &current[i]
		byKey := prevIdx[site.URL]
		for j := range site.Events {
			if _, ok := byKey[matchKey(&site.Events[j])]; ok {
				continue
			}
			delta = append(delta, NewEvent{SiteURL: site.URL, Event: site.Events[j]})
		}
	}
	return delta
}

func cloneSite(s *SiteResult) SiteResult {
	cp := SiteResult{URL: s.URL, Errors: cloneStrings(s.Errors)}
	if s.Events != nil {
		cp.Events = make([]Event, len(s.Events))
		for i := range s.Events {
			cp.Events[i] = s.Events[i]
			cp.Events[i].Relevance = cloneStrings(s.Events[i].Relevance)
			cp.Events[i].Errors = cloneStrings(s.Events[i].Errors)
		}
	}
	return cp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	cp := make([]string, len(s))
	copy(cp, s)
	return cp
}
