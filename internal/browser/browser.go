// Package browser is the page-automation surface the harvest and detail
// engines drive: navigate, wait for selectors, extract structured rows, and
// interact with load-more controls. Two backends implement it: a Chrome
// session driven through rod for dynamic pages, and a plain HTTP/goquery
// backend for venues whose listings render server-side.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Find and Text when no element matches.
var ErrNotFound = errors.New("browser: element not found")

// WaitState selects what a WaitFor call blocks on.
type WaitState int

const (
	WaitPresent WaitState = iota // element exists in the DOM
	WaitVisible                  // element exists and is visible
	WaitHidden                   // element is gone or invisible
)

// RowSelectors names the descendant selectors Rows pulls from each matched
// container element. Empty selectors yield empty fields.
type RowSelectors struct {
	Name        string
	Date        string
	Description string // text content, single-page sites
	DetailLink  string // href attribute, two-page sites
}

// Row is one raw event row as read from the page.
type Row struct {
	Name        string
	Date        string
	Description string
	DetailLink  string
}

// Control is a handle on an interactable element, typically a load-more
// button.
type Control interface {
	Visible() (bool, error)
	Opacity() (float64, error)
	Click() error
}

// Page is one page context. A page is used exclusively by one operation and
// must be closed on every exit path.
type Page interface {
	// Navigate loads a URL and waits for the page load to settle.
	Navigate(url string) error

	// WaitFor blocks until the selector reaches the wanted state or the
	// timeout elapses.
	WaitFor(sel string, state WaitState, timeout time.Duration) error

	// Rows extracts one Row per element matching container, reading the
	// configured descendant selectors. It does not wait; callers WaitFor
	// the container first.
	Rows(container string, sel RowSelectors) ([]Row, error)

	// Count returns how many elements currently match container.
	Count(container string) (int, error)

	// Text returns the text of the first element matching sel, or
	// ErrNotFound.
	Text(sel string) (string, error)

	// Links returns the href of every element matching sel.
	Links(sel string) ([]string, error)

	// Find locates an element without waiting. Returns ErrNotFound when
	// absent.
	Find(sel string) (Control, error)

	Close() error
}

// Session owns the shared automation channel and hands out page contexts.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
