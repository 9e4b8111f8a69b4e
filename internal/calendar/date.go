package calendar

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. Venue listings write dates every which
// way; formats without a year resolve to the current year.
var dateLayouts = []string{
	"2006-01-02",
	"Jan 02 2006",
	"Jan 2 2006",
	"2 January 2006",
	"02-01-2006",
	"02/01/2006",
	"01.02.06",
	"1.2.06",
}

var yearlessLayouts = []string{
	"Jan 02",
	"Jan 2",
	"2 January",
	"02-01",
}

// ParseDate attempts to parse a free-text event date. Weekday prefixes
// such as "Fri 01 May" are stripped first. Returns the zero time when no
// layout matches.
func ParseDate(text string) time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}
	}
	text = stripWeekday(text)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			now := time.Now()
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return time.Time{}
}

var weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
	"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun",
}

func stripWeekday(text string) string {
	for _, wd := range weekdays {
		if strings.HasPrefix(text, wd) {
			rest := strings.TrimLeft(text[len(wd):], " ,")
			if rest != "" {
				return rest
			}
		}
	}
	return text
}
