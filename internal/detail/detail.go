// Package detail resolves per-event relevance. Single-page sites already
// carry their descriptions, so their events are scored directly. Two-page
// sites need a navigation to each event's detail page, and optionally a
// third-level fetch per lineup artist, before the genre terms can be
// searched.
package detail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/venue-events/internal/browser"
	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/filter"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/relevance"
)

// Resolver scores the events of one site per Resolve call.
type Resolver struct {
	// Limit caps how many detail pages are fetched per run. Unresolved
	// events beyond the cap are picked up by the next run, which resumes
	// where this one stopped. Single-page events need no fetch and are
	// not counted.
	Limit int

	// Timeout bounds each selector wait on a detail page.
	Timeout time.Duration

	// Genres are the band's relevance terms.
	Genres []string

	// Exclude short-circuits matching event names to an explicit empty
	// relevance without any fetch.
	Exclude *filter.Exclusions
}

// Resolve fills in Relevance (or a terminal error) for every unresolved
// event in res, in place. Events that already have relevance or a recorded
// error are skipped, so repeated runs resume at the first unresolved event.
func (r *Resolver) Resolve(ctx context.Context, sess browser.Session, sel config.Selectors, res *event.SiteResult) {
	fetches := 0

	for i := range res.Events {
		ev := &res.Events[i]
		if ev.Resolved() {
			continue
		}

		if r.Exclude.Match(ev.Name) {
			ev.Relevance = []string{}
			logger.Debug("event excluded by filter", logger.Fields{"name": ev.Name})
			continue
		}

		if !sel.TwoPage() {
			ev.Relevance = relevance.Extract(ev.Description, r.Genres)
			continue
		}

		if fetches >= r.Limit {
			continue
		}
		fetches++
		r.resolveEvent(ctx, sess, sel, res, ev)
	}

	logger.Debug("detail resolution finished", logger.Fields{
		"url":     res.URL,
		"fetches": fetches,
	})
}

// resolveEvent fetches one event's detail page, assembles its description
// text and scores it. Terminal failures land on the event's error list;
// lineup sub-fetch failures are recorded on both the event and the site but
// do not abort the event.
func (r *Resolver) resolveEvent(ctx context.Context, sess browser.Session, sel config.Selectors, res *event.SiteResult, ev *event.Event) {
	// Relative detail links are resolved against the listing URL before
	// the domain match, so a bare "/shows/1" still finds its selector.
	link := absoluteURL(res.URL, ev.DetailLink)

	ds, ok := selectorForDomain(sel.Details, link)
	if !ok {
		ev.Errors = append(ev.Errors, fmt.Sprintf("no description selector for domain of %s", link))
		return
	}

	pg, err := sess.NewPage(ctx)
	if err != nil {
		ev.Errors = append(ev.Errors, fmt.Sprintf("opening page: %v", err))
		return
	}
	defer pg.Close()

	logger.IncrCounter("detail.fetches")
	if err := pg.Navigate(link); err != nil {
		ev.Errors = append(ev.Errors, err.Error())
		return
	}
	if err := pg.WaitFor(ds.Description, browser.WaitPresent, r.Timeout); err != nil {
		ev.Errors = append(ev.Errors, err.Error())
		return
	}

	var descriptions []string
	if text, err := pg.Text(ds.Description); err == nil && strings.TrimSpace(text) != "" {
		descriptions = append(descriptions, text)
	}

	if ds.LineupLinks != "" {
		descriptions = append(descriptions, r.fetchLineup(pg, ds, link, res, ev)...)
	}

	if len(descriptions) == 0 {
		// Distinct from "matched zero genre terms": nothing was read at
		// all, so relevance stays unevaluated and the error is final.
		ev.Errors = append(ev.Errors, fmt.Sprintf("no description text at %s", link))
		return
	}

	ev.Relevance = relevance.Extract(strings.Join(descriptions, "\n"), r.Genres)
}

// fetchLineup visits each lineup artist page and collects its bio text.
// Every failure is non-fatal: it is recorded and the remaining links are
// still visited.
func (r *Resolver) fetchLineup(pg browser.Page, ds config.DetailSelector, base string, res *event.SiteResult, ev *event.Event) []string {
	links, err := pg.Links(ds.LineupLinks)
	if err != nil {
		subError(res, ev, fmt.Sprintf("listing lineup links: %v", err))
		return nil
	}

	var bios []string
	for _, l := range links {
		artistURL := absoluteURL(base, l)
		if err := pg.Navigate(artistURL); err != nil {
			subError(res, ev, err.Error())
			continue
		}
		if err := pg.WaitFor(ds.ArtistDescription, browser.WaitPresent, r.Timeout); err != nil {
			subError(res, ev, fmt.Sprintf("artist page %s: %v", artistURL, err))
			continue
		}
		text, err := pg.Text(ds.ArtistDescription)
		if err != nil {
			subError(res, ev, fmt.Sprintf("artist page %s: %v", artistURL, err))
			continue
		}
		if strings.TrimSpace(text) != "" {
			bios = append(bios, text)
		}
	}
	return bios
}

func subError(res *event.SiteResult, ev *event.Event, msg string) {
	ev.Errors = append(ev.Errors, msg)
	res.Errors = append(res.Errors, msg)
	logger.IncrCounter("detail.lineup_errors")
}

// selectorForDomain picks the first selector whose domain substring occurs
// in the detail link.
func selectorForDomain(details []config.DetailSelector, link string) (config.DetailSelector, bool) {
	for _, ds := range details {
		if ds.Domain != "" && strings.Contains(link, ds.Domain) {
			return ds, true
		}
	}
	return config.DetailSelector{}, false
}

// absoluteURL resolves link against base; unparseable inputs pass through
// untouched.
func absoluteURL(base, link string) string {
	b, err := url.Parse(base)
	if err != nil {
		return link
	}
	l, err := url.Parse(link)
	if err != nil {
		return link
	}
	return b.ResolveReference(l).String()
}
