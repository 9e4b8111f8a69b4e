package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	staticUserAgent = "venue-events/1.0 (github.com/pfrederiksen/venue-events)"

	// maxBodySize caps a static fetch at 10MB.
	maxBodySize = 10 << 20
)

// StaticSession implements Session with plain HTTP fetches parsed by
// goquery. It serves venues whose listings render server-side, where paying
// for a Chrome round-trip buys nothing.
//
// The backend has no interaction surface: Find always reports ErrNotFound,
// so a harvest over a static page naturally completes in a single pass.
// Static venues should not configure load-more selectors.
type StaticSession struct {
	client *http.Client
}

// NewStaticSession creates a session with the given per-request timeout.
func NewStaticSession(timeout time.Duration) *StaticSession {
	return &StaticSession{
		client: &http.Client{Timeout: timeout},
	}
}

// NewPage returns an empty page context; the document is loaded by
// Navigate.
func (s *StaticSession) NewPage(ctx context.Context) (Page, error) {
	return &staticPage{client: s.client, ctx: ctx}, nil
}

// Close is a no-op; the HTTP client holds no resources worth tearing down.
func (s *StaticSession) Close() error { return nil }

type staticPage struct {
	client *http.Client
	ctx    context.Context
	doc    *goquery.Document
}

func (p *staticPage) Navigate(url string) error {
	req, err := http.NewRequestWithContext(p.ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", staticUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status code %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", url, err)
	}

	p.doc = doc
	return nil
}

// WaitFor cannot actually wait on a static document; it checks the state
// once. A selector that is absent now will never appear.
func (p *staticPage) WaitFor(sel string, state WaitState, _ time.Duration) error {
	if p.doc == nil {
		return fmt.Errorf("waiting for %q: no document loaded", sel)
	}
	present := p.doc.Find(sel).Length() > 0

	switch state {
	case WaitPresent, WaitVisible:
		if !present {
			return fmt.Errorf("waiting for %q: %w", sel, ErrNotFound)
		}
		return nil
	case WaitHidden:
		if present {
			return fmt.Errorf("waiting for %q to disappear: still present", sel)
		}
		return nil
	default:
		return fmt.Errorf("unknown wait state %d", state)
	}
}

func (p *staticPage) Rows(container string, sel RowSelectors) ([]Row, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("querying %q: no document loaded", container)
	}

	var rows []Row
	p.doc.Find(container).Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, Row{
			Name:        selText(s, sel.Name),
			Date:        selText(s, sel.Date),
			Description: selText(s, sel.Description),
			DetailLink:  selAttr(s, sel.DetailLink, "href"),
		})
	})
	return rows, nil
}

func (p *staticPage) Count(container string) (int, error) {
	if p.doc == nil {
		return 0, fmt.Errorf("counting %q: no document loaded", container)
	}
	return p.doc.Find(container).Length(), nil
}

func (p *staticPage) Text(sel string) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("querying %q: no document loaded", sel)
	}
	match := p.doc.Find(sel).First()
	if match.Length() == 0 {
		return "", ErrNotFound
	}
	return match.Text(), nil
}

func (p *staticPage) Links(sel string) ([]string, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("querying %q: no document loaded", sel)
	}

	var links []string
	p.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links, nil
}

// Find reports every element as absent: there is nothing to click without a
// browser, and pretending otherwise would only surface click failures as
// site errors.
func (p *staticPage) Find(string) (Control, error) {
	return nil, ErrNotFound
}

func (p *staticPage) Close() error {
	p.doc = nil
	return nil
}

func selText(s *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return s.Find(sel).First().Text()
}

func selAttr(s *goquery.Selection, sel, attr string) string {
	if sel == "" {
		return ""
	}
	v, _ := s.Find(sel).First().Attr(attr)
	return v
}
