package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/pfrederiksen/venue-events/internal/logger"
)

// RodSession drives a locally launched Chrome through rod. One session is
// shared across the whole run; each harvest or detail fetch gets its own
// page context.
type RodSession struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewRodSession launches Chrome and connects to it. With debug set the
// browser runs headful so the run can be watched.
func NewRodSession(debug bool) (*RodSession, error) {
	l := launcher.New().
		Headless(!debug).
		Set("disable-blink-features", "AutomationControlled")

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	logger.Debug("browser session started", logger.Fields{"debug": debug})

	return &RodSession{browser: b, lnch: l}, nil
}

// NewPage opens a stealth page bound to ctx.
func (s *RodSession) NewPage(ctx context.Context) (Page, error) {
	pg, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	return &rodPage{page: pg.Context(ctx)}, nil
}

// Close shuts down Chrome.
func (s *RodSession) Close() error {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			return err
		}
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return nil
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(url string) error {
	if err := p.page.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := p.page.WaitLoad(); err != nil {
		// Slow third-party assets should not fail the whole fetch.
		logger.Warn("page load wait failed", logger.Fields{"url": url, "error": err.Error()})
	}
	return nil
}

func (p *rodPage) WaitFor(sel string, state WaitState, timeout time.Duration) error {
	switch state {
	case WaitPresent:
		_, err := p.page.Timeout(timeout).Element(sel)
		if err != nil {
			return fmt.Errorf("waiting for %q: %w", sel, err)
		}
		return nil

	case WaitVisible:
		el, err := p.page.Timeout(timeout).Element(sel)
		if err != nil {
			return fmt.Errorf("waiting for %q: %w", sel, err)
		}
		if err := el.Timeout(timeout).WaitVisible(); err != nil {
			return fmt.Errorf("waiting for %q to become visible: %w", sel, err)
		}
		return nil

	case WaitHidden:
		el, err := p.page.Sleeper(rod.NotFoundSleeper).Element(sel)
		if err != nil {
			if isNotFound(err) {
				return nil // already gone
			}
			return fmt.Errorf("locating %q: %w", sel, err)
		}
		if err := el.Timeout(timeout).WaitInvisible(); err != nil {
			return fmt.Errorf("waiting for %q to disappear: %w", sel, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown wait state %d", state)
	}
}

func (p *rodPage) Rows(container string, sel RowSelectors) ([]Row, error) {
	els, err := p.page.Elements(container)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", container, err)
	}

	rows := make([]Row, 0, len(els))
	for _, el := range els {
		rows = append(rows, Row{
			Name:        childText(el, sel.Name),
			Date:        childText(el, sel.Date),
			Description: childText(el, sel.Description),
			DetailLink:  childAttr(el, sel.DetailLink, "href"),
		})
	}
	return rows, nil
}

func (p *rodPage) Count(container string) (int, error) {
	els, err := p.page.Elements(container)
	if err != nil {
		return 0, fmt.Errorf("counting %q: %w", container, err)
	}
	return len(els), nil
}

func (p *rodPage) Text(sel string) (string, error) {
	el, err := p.page.Sleeper(rod.NotFoundSleeper).Element(sel)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("querying %q: %w", sel, err)
	}
	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("reading text of %q: %w", sel, err)
	}
	return text, nil
}

func (p *rodPage) Links(sel string) ([]string, error) {
	els, err := p.page.Elements(sel)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", sel, err)
	}

	links := make([]string, 0, len(els))
	for _, el := range els {
		href, err := el.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		links = append(links, *href)
	}
	return links, nil
}

func (p *rodPage) Find(sel string) (Control, error) {
	el, err := p.page.Sleeper(rod.NotFoundSleeper).Element(sel)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("locating %q: %w", sel, err)
	}
	return &rodControl{el: el}, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

type rodControl struct {
	el *rod.Element
}

func (c *rodControl) Visible() (bool, error) {
	return c.el.Visible()
}

func (c *rodControl) Opacity() (float64, error) {
	res, err := c.el.Eval(`() => parseFloat(getComputedStyle(this).opacity)`)
	if err != nil {
		return 0, fmt.Errorf("reading opacity: %w", err)
	}
	return res.Value.Num(), nil
}

func (c *rodControl) Click() error {
	return c.el.Click(proto.InputMouseButtonLeft, 1)
}

// childText reads the text of the first descendant matching sel, without
// waiting. Missing descendants yield "".
func childText(el *rod.Element, sel string) string {
	if sel == "" {
		return ""
	}
	c, err := el.Sleeper(rod.NotFoundSleeper).Element(sel)
	if err != nil {
		return ""
	}
	text, err := c.Text()
	if err != nil {
		return ""
	}
	return text
}

func childAttr(el *rod.Element, sel, attr string) string {
	if sel == "" {
		return ""
	}
	c, err := el.Sleeper(rod.NotFoundSleeper).Element(sel)
	if err != nil {
		return ""
	}
	v, err := c.Attribute(attr)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func isNotFound(err error) bool {
	var notFound *rod.ElementNotFoundError
	return errors.As(err, &notFound)
}
