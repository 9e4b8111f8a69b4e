package detail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/venue-events/internal/browser"
	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/filter"
)

// pageContent is what a fake URL serves: text per selector and links per
// selector.
type pageContent struct {
	texts map[string]string
	links map[string][]string
}

// fakeSession scripts a site: every NewPage hands out a page that serves
// content keyed by navigated URL. It also counts page contexts to catch
// leaks.
type fakeSession struct {
	content  map[string]pageContent
	navErrs  map[string]error
	waitErrs map[string]error // url + "|" + selector

	opened int
	closed int
}

func (s *fakeSession) NewPage(context.Context) (browser.Page, error) {
	s.opened++
	return &fakeDetailPage{sess: s}, nil
}

func (s *fakeSession) Close() error { return nil }

type fakeDetailPage struct {
	sess *fakeSession
	url  string
}

func (p *fakeDetailPage) Navigate(u string) error {
	if err := p.sess.navErrs[u]; err != nil {
		return err
	}
	p.url = u
	return nil
}

func (p *fakeDetailPage) WaitFor(sel string, _ browser.WaitState, _ time.Duration) error {
	if err := p.sess.waitErrs[p.url+"|"+sel]; err != nil {
		return err
	}
	return nil
}

func (p *fakeDetailPage) Rows(string, browser.RowSelectors) ([]browser.Row, error) {
	return nil, nil
}

func (p *fakeDetailPage) Count(string) (int, error) { return 0, nil }

func (p *fakeDetailPage) Text(sel string) (string, error) {
	if t, ok := p.sess.content[p.url].texts[sel]; ok {
		return t, nil
	}
	return "", browser.ErrNotFound
}

func (p *fakeDetailPage) Links(sel string) ([]string, error) {
	return p.sess.content[p.url].links[sel], nil
}

func (p *fakeDetailPage) Find(string) (browser.Control, error) {
	return nil, browser.ErrNotFound
}

func (p *fakeDetailPage) Close() error {
	p.sess.closed++
	return nil
}

const siteURL = "https://venue.example/agenda"

var twoPageSel = config.Selectors{
	Container:  ".event-row",
	Name:       ".title",
	Date:       ".date",
	DetailLink: "a.event-link",
	Details: []config.DetailSelector{{
		Domain:            "venue.example",
		Description:       ".event-description",
		LineupLinks:       ".lineup a",
		ArtistDescription: ".artist-bio",
	}},
}

var singlePageSel = config.Selectors{
	Container:   ".event-row",
	Name:        ".title",
	Date:        ".date",
	Description: ".blurb",
}

func resolver(*fakeSession) *Resolver {
	return &Resolver{
		Limit:   5,
		Timeout: time.Second,
		Genres:  []string{"soul", "funk"},
	}
}

func checkNoLeaks(t *testing.T, sess *fakeSession) {
	t.Helper()
	if sess.opened != sess.closed {
		t.Errorf("page context leak: opened %d, closed %d", sess.opened, sess.closed)
	}
}

func TestResolveSinglePage(t *testing.T) {
	sess := &fakeSession{}
	res := &event.SiteResult{URL: siteURL, Events: []event.Event{
		{Name: "Foo Band", Date: "May 1", Description: "a deep soul revue"},
		{Name: "Bar Band", Date: "May 2", Description: "death metal only"},
	}}

	resolver(sess).Resolve(context.Background(), sess, singlePageSel, res)

	if len(res.Events[0].Relevance) != 1 {
		t.Errorf("Foo Band relevance = %v", res.Events[0].Relevance)
	}
	if res.Events[1].Relevance == nil || len(res.Events[1].Relevance) != 0 {
		t.Errorf("Bar Band relevance = %v, want explicit empty", res.Events[1].Relevance)
	}
	if sess.opened != 0 {
		t.Errorf("single-page resolution opened %d pages", sess.opened)
	}
}

func TestResolveSinglePageIgnoresLimit(t *testing.T) {
	sess := &fakeSession{}
	res := &event.SiteResult{URL: siteURL}
	for i := 0; i < 20; i++ {
		res.Events = append(res.Events, event.Event{Name: "Band", Date: time.Now().Add(time.Duration(i) * time.Hour).String(), Description: "soul"})
	}

	r := resolver(sess)
	r.Limit = 2
	r.Resolve(context.Background(), sess, singlePageSel, res)

	for i := range res.Events {
		if res.Events[i].Relevance == nil {
			t.Fatalf("event %d left unresolved; single-page sites are not bounded by the fetch limit", i)
		}
	}
}

func TestResolveFilterShortCircuit(t *testing.T) {
	sess := &fakeSession{}
	res := &event.SiteResult{URL: siteURL, Events: []event.Event{
		{Name: "Tuesday Open Mic Night", Date: "May 1", DetailLink: "/shows/1"},
	}}

	r := resolver(sess)
	var err error
	r.Exclude, err = filter.Compile([]string{"Open Mic"})
	if err != nil {
		t.Fatal(err)
	}
	r.Resolve(context.Background(), sess, twoPageSel, res)

	ev := res.Events[0]
	if ev.Relevance == nil || len(ev.Relevance) != 0 {
		t.Errorf("relevance = %v, want explicit empty without fetch", ev.Relevance)
	}
	if !ev.Resolved() {
		t.Error("filtered event must count as resolved for resume purposes")
	}
	if sess.opened != 0 {
		t.Errorf("filter short-circuit opened %d pages", sess.opened)
	}
}

func TestResolveTwoPage(t *testing.T) {
	sess := &fakeSession{
		content: map[string]pageContent{
			"https://venue.example/shows/1": {
				texts: map[string]string{".event-description": "an evening of raw soul"},
			},
		},
	}
	res := &event.SiteResult{URL: siteURL, Events: []event.Event{
		{Name: "Foo Band", Date: "May 1", DetailLink: "/shows/1"},
	}}

	resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

	ev := res.Events[0]
	if len(ev.Relevance) != 1 || !strings.Contains(ev.Relevance[0], "soul") {
		t.Errorf("relevance = %v", ev.Relevance)
	}
	if len(ev.Errors) != 0 {
		t.Errorf("errors = %v", ev.Errors)
	}
	checkNoLeaks(t, sess)
}

func TestResolveResumeOffset(t *testing.T) {
	sess := &fakeSession{
		content: map[string]pageContent{
			"https://venue.example/shows/5": {
				texts: map[string]string{".event-description": "funk all night"},
			},
		},
	}
	res := &event.SiteResult{URL: siteURL, Events: []event.Event{
		{Name: "A", Date: "May 1", DetailLink: "/shows/1", Relevance: []string{"...soul..."}},
		{Name: "B", Date: "May 2", DetailLink: "/shows/2", Relevance: []string{}},
		{Name: "C", Date: "May 3", DetailLink: "/shows/3", Relevance: []string{"...funk..."}},
		{Name: "D", Date: "May 4", DetailLink: "/shows/4", Errors: []string{"waiting for \".event-description\": timeout"}},
		{Name: "E", Date: "May 5", DetailLink: "/shows/5"},
	}}

	resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

	if sess.opened != 1 {
		t.Errorf("opened %d pages, want 1 (only event E)", sess.opened)
	}
	if res.Events[4].Relevance == nil {
		t.Error("event E should have been resolved")
	}
	if res.Events[3].Relevance != nil {
		t.Error("errored event D must not be retried")
	}
	checkNoLeaks(t, sess)
}

func TestResolveLimit(t *testing.T) {
	sess := &fakeSession{content: map[string]pageContent{}}
	res := &event.SiteResult{URL: siteURL}
	for _, n := range []string{"1", "2", "3", "4", "5", "6"} {
		sess.content["https://venue.example/shows/"+n] = pageContent{
			texts: map[string]string{".event-description": "soul show " + n},
		}
		res.Events = append(res.Events, event.Event{Name: "Band " + n, Date: "May " + n, DetailLink: "/shows/" + n})
	}

	r := resolver(sess)
	r.Limit = 2
	r.Resolve(context.Background(), sess, twoPageSel, res)

	if sess.opened != 2 {
		t.Errorf("opened %d pages, want 2", sess.opened)
	}
	resolved := 0
	for i := range res.Events {
		if res.Events[i].Resolved() {
			resolved++
		}
	}
	if resolved != 2 {
		t.Errorf("resolved = %d, want 2", resolved)
	}
	checkNoLeaks(t, sess)
}

func TestResolveTerminalErrors(t *testing.T) {
	t.Run("no selector for domain", func(t *testing.T) {
		sess := &fakeSession{}
		res := &event.SiteResult{URL: siteURL, Events: []event.Event{
			{Name: "Foo Band", Date: "May 1", DetailLink: "https://elsewhere.example/1"},
		}}

		resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

		ev := res.Events[0]
		if len(ev.Errors) != 1 || !strings.Contains(ev.Errors[0], "no description selector") {
			t.Errorf("errors = %v", ev.Errors)
		}
		if ev.Relevance != nil {
			t.Error("relevance must stay unevaluated on terminal failure")
		}
		if sess.opened != 0 {
			t.Error("no page should open without a matching selector")
		}
	})

	t.Run("navigation failure", func(t *testing.T) {
		sess := &fakeSession{
			navErrs: map[string]error{"https://venue.example/shows/1": errors.New("navigating to /shows/1: refused")},
		}
		res := &event.SiteResult{URL: siteURL, Events: []event.Event{
			{Name: "Foo Band", Date: "May 1", DetailLink: "/shows/1"},
		}}

		resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

		if len(res.Events[0].Errors) != 1 {
			t.Errorf("errors = %v", res.Events[0].Errors)
		}
		checkNoLeaks(t, sess)
	})

	t.Run("description wait timeout", func(t *testing.T) {
		sess := &fakeSession{
			waitErrs: map[string]error{
				"https://venue.example/shows/1|.event-description": errors.New("waiting for \".event-description\": timeout"),
			},
		}
		res := &event.SiteResult{URL: siteURL, Events: []event.Event{
			{Name: "Foo Band", Date: "May 1", DetailLink: "/shows/1"},
		}}

		resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

		ev := res.Events[0]
		if len(ev.Errors) != 1 || ev.Relevance != nil {
			t.Errorf("event = %+v", ev)
		}
		if !ev.Resolved() {
			t.Error("terminal failure must count as resolved (dead letter)")
		}
		checkNoLeaks(t, sess)
	})

	t.Run("no description text", func(t *testing.T) {
		sess := &fakeSession{
			content: map[string]pageContent{
				"https://venue.example/shows/1": {texts: map[string]string{".event-description": "   "}},
			},
		}
		res := &event.SiteResult{URL: siteURL, Events: []event.Event{
			{Name: "Foo Band", Date: "May 1", DetailLink: "/shows/1"},
		}}

		resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

		ev := res.Events[0]
		if len(ev.Errors) != 1 || !strings.Contains(ev.Errors[0], "no description text") {
			t.Errorf("errors = %v", ev.Errors)
		}
		if ev.Relevance != nil {
			t.Errorf("relevance = %v, want unevaluated", ev.Relevance)
		}
		checkNoLeaks(t, sess)
	})
}

func TestResolveLineup(t *testing.T) {
	t.Run("one failed link of three still yields combined text", func(t *testing.T) {
		sess := &fakeSession{
			content: map[string]pageContent{
				"https://venue.example/shows/1": {
					texts: map[string]string{".event-description": "triple bill"},
					links: map[string][]string{".lineup a": {"/artists/a", "/artists/b", "/artists/c"}},
				},
				"https://venue.example/artists/a": {texts: map[string]string{".artist-bio": "a slides between soul and jazz"}},
				"https://venue.example/artists/c": {texts: map[string]string{".artist-bio": "c plays heavy funk"}},
			},
			navErrs: map[string]error{
				"https://venue.example/artists/b": errors.New("navigating to /artists/b: timeout"),
			},
		}
		res := &event.SiteResult{URL: siteURL, Events: []event.Event{
			{Name: "Triple Bill", Date: "May 1", DetailLink: "/shows/1"},
		}}

		resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

		ev := res.Events[0]
		if len(ev.Relevance) != 2 {
			t.Errorf("relevance = %v, want soul and funk snippets from artists a and c", ev.Relevance)
		}
		if len(ev.Errors) != 1 {
			t.Errorf("event errors = %v, want exactly one sub-error", ev.Errors)
		}
		if len(res.Errors) != 1 {
			t.Errorf("site errors = %v, want the sub-error mirrored", res.Errors)
		}
		checkNoLeaks(t, sess)
	})

	t.Run("all lineup links fail but primary description stands", func(t *testing.T) {
		sess := &fakeSession{
			content: map[string]pageContent{
				"https://venue.example/shows/1": {
					texts: map[string]string{".event-description": "pure soul revue"},
					links: map[string][]string{".lineup a": {"/artists/a"}},
				},
			},
			navErrs: map[string]error{
				"https://venue.example/artists/a": errors.New("navigating to /artists/a: timeout"),
			},
		}
		res := &event.SiteResult{URL: siteURL, Events: []event.Event{
			{Name: "Revue", Date: "May 1", DetailLink: "/shows/1"},
		}}

		resolver(sess).Resolve(context.Background(), sess, twoPageSel, res)

		ev := res.Events[0]
		if len(ev.Relevance) != 1 {
			t.Errorf("relevance = %v", ev.Relevance)
		}
		if len(ev.Errors) != 1 {
			t.Errorf("errors = %v", ev.Errors)
		}
		checkNoLeaks(t, sess)
	})
}
