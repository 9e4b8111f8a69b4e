package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/venue-events/internal/calendar"
	"github.com/pfrederiksen/venue-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByVenue SortOrder = "venue"
	SortByName  SortOrder = "name"
)

// sortNewEvents orders a run's delta for output. Harvest order is page
// order, which is rarely what a reader wants.
func sortNewEvents(events []event.NewEvent, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(&events[i], &events[j])
		})
	case SortByVenue:
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].SiteURL != events[j].SiteURL {
				return events[i].SiteURL < events[j].SiteURL
			}
			return compareByDate(&events[i], &events[j])
		})
	case SortByName:
		sort.SliceStable(events, func(i, j int) bool {
			ni, nj := strings.ToLower(events[i].Event.Name), strings.ToLower(events[j].Event.Name)
			if ni != nj {
				return ni < nj
			}
			return compareByDate(&events[i], &events[j])
		})
	}
}

// compareByDate reports whether event i should come before event j. Events
// with parseable dates sort chronologically ahead of those without; the
// unparseable tail falls back to venue then name.
func compareByDate(i, j *event.NewEvent) bool {
	dateI := calendar.ParseDate(i.Event.Date)
	dateJ := calendar.ParseDate(j.Event.Date)

	if !dateI.IsZero() && !dateJ.IsZero() {
		return dateI.Before(dateJ)
	}
	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	if i.SiteURL != j.SiteURL {
		return i.SiteURL < j.SiteURL
	}
	return strings.ToLower(i.Event.Name) < strings.ToLower(j.Event.Name)
}
