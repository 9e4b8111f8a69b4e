package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const listingHTML = `<html><body>
<ul>
  <li class="show">
    <h3>Foo  Band</h3>
    <span class="when">Fri, May 1</span>
    <p class="blurb">A night of deep soul.</p>
    <a class="more" href="/shows/1">details</a>
  </li>
  <li class="show">
    <h3>Bar Band</h3>
    <span class="when">Sat, May 2</span>
    <p class="blurb">Garage rock.</p>
  </li>
</ul>
</body></html>`

func newStaticPage(t *testing.T, html string) Page {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)

	sess := NewStaticSession(5 * time.Second)
	pg, err := sess.NewPage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pg.Close() })

	if err := pg.Navigate(srv.URL); err != nil {
		t.Fatal(err)
	}
	return pg
}

func TestStaticPage(t *testing.T) {
	pg := newStaticPage(t, listingHTML)

	t.Run("rows", func(t *testing.T) {
		rows, err := pg.Rows("li.show", RowSelectors{
			Name:        "h3",
			Date:        ".when",
			Description: ".blurb",
			DetailLink:  "a.more",
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if rows[0].Name != "Foo  Band" || rows[0].Date != "Fri, May 1" {
			t.Errorf("row 0 = %+v", rows[0])
		}
		if rows[0].DetailLink != "/shows/1" {
			t.Errorf("row 0 detail link = %q", rows[0].DetailLink)
		}
		if rows[1].DetailLink != "" {
			t.Errorf("row 1 detail link = %q, want empty", rows[1].DetailLink)
		}
	})

	t.Run("count", func(t *testing.T) {
		n, err := pg.Count("li.show")
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("count = %d, want 2", n)
		}
	})

	t.Run("wait states check once", func(t *testing.T) {
		if err := pg.WaitFor("li.show", WaitPresent, time.Second); err != nil {
			t.Errorf("present selector: %v", err)
		}
		if err := pg.WaitFor(".missing", WaitPresent, time.Second); err == nil {
			t.Error("expected error for missing selector")
		}
		if err := pg.WaitFor(".missing", WaitHidden, time.Second); err != nil {
			t.Errorf("hidden wait on absent selector: %v", err)
		}
	})

	t.Run("text", func(t *testing.T) {
		text, err := pg.Text(".blurb")
		if err != nil {
			t.Fatal(err)
		}
		if text != "A night of deep soul." {
			t.Errorf("text = %q", text)
		}
		if _, err := pg.Text(".missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("links", func(t *testing.T) {
		links, err := pg.Links("a.more")
		if err != nil {
			t.Fatal(err)
		}
		if len(links) != 1 || links[0] != "/shows/1" {
			t.Errorf("links = %v", links)
		}
	})

	t.Run("no interaction surface", func(t *testing.T) {
		if _, err := pg.Find("a.more"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStaticPageNavigateErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		sess := NewStaticSession(5 * time.Second)
		pg, err := sess.NewPage(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		defer pg.Close()

		if err := pg.Navigate(srv.URL); err == nil {
			t.Error("expected error for 403 response")
		}
	})

	t.Run("queries before navigate fail", func(t *testing.T) {
		sess := NewStaticSession(5 * time.Second)
		pg, err := sess.NewPage(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		defer pg.Close()

		if _, err := pg.Rows("li", RowSelectors{}); err == nil {
			t.Error("expected error without a loaded document")
		}
	})
}
