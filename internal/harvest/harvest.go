// Package harvest extracts a de-duplicated event list from a venue's
// listing page, driving zero or more "load more" cycles.
//
// Whether "load more" appends rows or re-renders the entire list varies by
// site, so the engine re-reads the whole current DOM on every pass and
// tracks identity keys across passes; the deepest successful read is the
// authoritative row set. If a re-render reorders rows, final ordering
// follows the latest read.
package harvest

import (
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/venue-events/internal/browser"
	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/logger"
)

const (
	// DefaultMaxPasses bounds the load-more loop. Some sites loop their
	// content indefinitely; termination wins over completeness.
	DefaultMaxPasses = 6

	// pollInterval is how often the row count is re-checked while waiting
	// for a load-more click to produce new rows.
	pollInterval = 250 * time.Millisecond
)

// Engine harvests one site per Run call.
type Engine struct {
	// MaxPasses caps how many times the load-more control is clicked.
	// Zero means DefaultMaxPasses.
	MaxPasses int

	// Timeout bounds each wait: the initial container wait, the loader
	// appear/disappear waits, and the row-count growth poll.
	Timeout time.Duration
}

// Run drives site's listing page and returns its harvested result. The
// page context is borrowed, not owned; the caller closes it.
//
// Failures split two ways: a container that never appears is terminal for
// the site (no events, error recorded), while a failed load-more cycle is
// recoverable (rows already read are returned alongside the error).
func (e *Engine) Run(pg browser.Page, siteURL string, sel config.Selectors) event.SiteResult {
	res := event.SiteResult{URL: siteURL}
	maxPasses := e.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	start := time.Now()
	defer func() {
		logger.RecordTiming("harvest", time.Since(start))
	}()

	if err := pg.Navigate(siteURL); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	if err := pg.WaitFor(sel.Container, browser.WaitPresent, e.Timeout); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	rowSel := browser.RowSelectors{
		Name: sel.Name,
		Date: sel.Date,
	}
	if sel.TwoPage() {
		rowSel.DetailLink = sel.DetailLink
	} else {
		rowSel.Description = sel.Description
	}

	// firstSeen records the pass on which each identity key was first
	// observed; rows carries the latest full read of the page.
	firstSeen := make(map[string]int)
	var rows []browser.Row

	for pass := 0; ; pass++ {
		var err error
		rows, err = pg.Rows(sel.Container, rowSel)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			break
		}
		for _, r := range rows {
			k := event.Key(r.Name, r.Date)
			if _, ok := firstSeen[k]; !ok {
				firstSeen[k] = pass
			}
		}

		if pass >= maxPasses {
			logger.Debug("pagination cap reached", logger.Fields{"url": siteURL, "passes": pass})
			break
		}
		if sel.LoadMore == "" {
			break
		}

		ctl, err := pg.Find(sel.LoadMore)
		if errors.Is(err, browser.ErrNotFound) {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("locating load-more control: %v", err))
			break
		}
		if visible, err := ctl.Visible(); err != nil || !visible {
			break
		}
		if opacity, err := ctl.Opacity(); err == nil && opacity <= 0 {
			break
		}

		before, err := pg.Count(sel.Container)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("counting rows before load-more: %v", err))
			break
		}
		if err := ctl.Click(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("clicking load-more: %v", err))
			break
		}

		// Two strategies to detect that new content arrived: watch a
		// loader spinner appear and disappear, or poll the row count.
		// A timeout on either is recoverable; the rows read so far
		// stand.
		if sel.Loader != "" {
			if err := pg.WaitFor(sel.Loader, browser.WaitVisible, e.Timeout); err != nil {
				res.Errors = append(res.Errors, err.Error())
				break
			}
			if err := pg.WaitFor(sel.Loader, browser.WaitHidden, e.Timeout); err != nil {
				res.Errors = append(res.Errors, err.Error())
				break
			}
		} else {
			if err := e.waitForGrowth(pg, sel.Container, before); err != nil {
				res.Errors = append(res.Errors, err.Error())
				break
			}
		}
	}

	res.Events = buildEvents(rows, firstSeen, sel.TwoPage())
	logger.Debug("harvest finished", logger.Fields{
		"url":    siteURL,
		"events": len(res.Events),
		"errors": len(res.Errors),
	})
	return res
}

// waitForGrowth polls the container count until it exceeds before or the
// timeout elapses.
func (e *Engine) waitForGrowth(pg browser.Page, container string, before int) error {
	deadline := time.Now().Add(e.Timeout)
	for {
		n, err := pg.Count(container)
		if err != nil {
			return fmt.Errorf("counting rows after load-more: %w", err)
		}
		if n > before {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no new rows within %v after load-more (still %d)", e.Timeout, n)
		}
		time.Sleep(pollInterval)
	}
}

// buildEvents converts the authoritative row read into events, suppressing
// duplicate identity keys (a re-render repeats already-seen rows) and
// stamping each event with the pass that first discovered it.
func buildEvents(rows []browser.Row, firstSeen map[string]int, twoPage bool) []event.Event {
	events := make([]event.Event, 0, len(rows))
	used := make(map[string]bool, len(rows))

	for _, r := range rows {
		k := event.Key(r.Name, r.Date)
		if used[k] {
			continue
		}
		used[k] = true

		ev := event.Event{
			Name:      r.Name,
			Date:      r.Date,
			PageIndex: firstSeen[k],
		}
		if twoPage {
			ev.DetailLink = r.DetailLink
		} else {
			ev.Description = r.Description
		}
		events = append(events, ev)
	}
	return events
}
