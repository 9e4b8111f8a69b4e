// Package notify delivers new-event digests to Telegram.
package notify

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/pfrederiksen/venue-events/internal/event"
)

// FormatDigest formats a run's new events as one HTML digest message,
// grouped by venue.
func FormatDigest(band string, newEvents []event.NewEvent) string {
	if len(newEvents) == 0 {
		return fmt.Sprintf("No new events for %s.", html.EscapeString(band))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎸 <b>New events for %s</b>\n\n", html.EscapeString(band))
	fmt.Fprintf(&b, "%d new event%s\n\n", len(newEvents), pluralize(len(newEvents)))

	bySite := make(map[string][]event.NewEvent)
	for _, ne := range newEvents {
		bySite[ne.SiteURL] = append(bySite[ne.SiteURL], ne)
	}

	sites := make([]string, 0, len(bySite))
	for site := range bySite {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	for _, site := range sites {
		siteEvents := bySite[site]
		fmt.Fprintf(&b, "📍 <b>%s</b>\n", html.EscapeString(site))
		for _, ne := range siteEvents {
			fmt.Fprintf(&b, "  • %s", html.EscapeString(ne.Event.Name))
			if ne.Event.Date != "" {
				fmt.Fprintf(&b, " (%s)", html.EscapeString(ne.Event.Date))
			}
			b.WriteString("\n")
			if len(ne.Event.Relevance) > 0 {
				fmt.Fprintf(&b, "    <i>%s</i>\n", html.EscapeString(ne.Event.Relevance[0]))
			}
			if ne.Event.DetailLink != "" {
				fmt.Fprintf(&b, "    %s\n", html.EscapeString(ne.Event.DetailLink))
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatSummary is the one-line variant, suitable for logs.
func FormatSummary(band string, newEvents []event.NewEvent) string {
	if len(newEvents) == 0 {
		return fmt.Sprintf("%s: no new events", band)
	}

	bySite := make(map[string]int)
	for _, ne := range newEvents {
		bySite[ne.SiteURL]++
	}
	siteList := make([]string, 0, len(bySite))
	for site, count := range bySite {
		siteList = append(siteList, fmt.Sprintf("%s (%d)", site, count))
	}
	sort.Strings(siteList)

	return fmt.Sprintf("%s: %d new event%s at %s",
		band, len(newEvents), pluralize(len(newEvents)), strings.Join(siteList, ", "))
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
