// Package calendar exports new events as iCalendar files so a hit can go
// straight into an agenda.
package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/venue-events/internal/event"
)

// GenerateICS renders one new event as an iCalendar document. Events whose
// date cannot be parsed default to one week out, so the entry still lands
// in the near future rather than silently disappearing.
func GenerateICS(band string, ne event.NewEvent) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//venue-events//venue-events//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@venue-events\r\n", uid(ne)))

	now := time.Now().UTC()
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(now)))

	eventDate := ParseDate(ne.Event.Date)
	if eventDate.IsZero() {
		eventDate = now.AddDate(0, 0, 7)
	}

	// Concerts are evening events; block out 20:00 to 23:00.
	startTime := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 20, 0, 0, 0, time.UTC)
	endTime := startTime.Add(3 * time.Hour)

	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(startTime)))
	ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(endTime)))

	summary := fmt.Sprintf("%s: %s", band, ne.Event.Name)
	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(summary)))

	description := ne.Event.Name
	if ne.Event.Date != "" {
		description = fmt.Sprintf("Date: %s\n%s", ne.Event.Date, description)
	}
	if len(ne.Event.Relevance) > 0 {
		description += "\n\n" + strings.Join(ne.Event.Relevance, "\n")
	}
	ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(description)))

	ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(ne.SiteURL)))

	if ne.Event.DetailLink != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", ne.Event.DetailLink))
	} else {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", ne.SiteURL))
	}

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// Export writes one .ics file per new event into dir, creating it if
// needed, and returns the written paths.
func Export(dir, band string, newEvents []event.NewEvent) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating calendar directory: %w", err)
	}

	var paths []string
	for _, ne := range newEvents {
		path := filepath.Join(dir, uid(ne)+".ics")
		if err := os.WriteFile(path, []byte(GenerateICS(band, ne)), 0644); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// uid derives a filesystem- and calendar-safe identifier from the event
// identity.
func uid(ne event.NewEvent) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ne.Event.Name + "-" + ne.Event.Date) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "event"
	}
	return b.String()
}

func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes text per RFC 5545.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	return strings.ReplaceAll(s, "\n", "\\n")
}
