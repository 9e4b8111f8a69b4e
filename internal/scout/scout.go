// Package scout runs the full pipeline for one band: harvest every
// configured venue listing, carry forward prior relevance, resolve what is
// still unresolved, and diff against the previous snapshot.
package scout

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/venue-events/internal/browser"
	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/detail"
	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/filter"
	"github.com/pfrederiksen/venue-events/internal/harvest"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/storage"
)

// SessionFactory creates the browser backend for a venue. Scout opens at
// most one session per kind and reuses it across venues.
type SessionFactory func(static bool) (browser.Session, error)

// Scout drives one band's run end to end.
type Scout struct {
	Config *config.Config
	Store  *storage.Storage

	// Sessions may be replaced in tests. Nil means the default: a rod
	// browser for dynamic venues, plain HTTP for static ones.
	Sessions SessionFactory
}

// RunResult is everything one run produced: the full cleaned state that
// was persisted plus the delta against the previous run.
type RunResult struct {
	Band      string             `json:"band"`
	CheckedAt time.Time          `json:"checked_at"`
	Sites     []event.SiteResult `json:"sites"`
	New       []event.NewEvent   `json:"new_events"`
}

func New(cfg *config.Config, store *storage.Storage) *Scout {
	return &Scout{Config: cfg, Store: store}
}

// Run executes the pipeline for the named band. Per-site failures are
// recorded in the site results, not returned; the error return covers
// conditions that prevent the run entirely, such as an unknown band or an
// invalid filter pattern.
func (s *Scout) Run(ctx context.Context, bandName string) (*RunResult, error) {
	start := time.Now()

	band, err := s.Config.Band(bandName)
	if err != nil {
		return nil, err
	}
	exclude, err := filter.Compile(band.Filters)
	if err != nil {
		return nil, fmt.Errorf("band %q filters: %w", band.Name, err)
	}

	previous := s.Store.Load(band.Name)

	sessions := newSessionCache(s.sessionFactory())
	defer sessions.closeAll()

	engine := &harvest.Engine{Timeout: s.Config.WaitTimeout()}

	// Harvest every venue first so carry-forward sees the complete run
	// before any detail page is fetched.
	current := make([]event.SiteResult, 0, len(band.Venues))
	targets := make([]resolveTarget, 0, len(band.Venues))
	for _, id := range band.Venues {
		venue, ok := s.Config.Venues[id]
		if !ok {
			logger.Warn("unknown venue", logger.Fields{"venue": id, "band": band.Name})
			current = append(current, event.SiteResult{
				URL:    id,
				Errors: []string{fmt.Sprintf("venue %q is not in the registry", id)},
			})
			targets = append(targets, resolveTarget{})
			continue
		}

		res := s.harvestVenue(ctx, sessions, engine, venue)
		current = append(current, res)
		targets = append(targets, resolveTarget{selectors: venue.Selectors, static: venue.Static})
	}

	current = event.CarryForward(previous, current)

	for i := range current {
		t := targets[i]
		if t.selectors.Container == "" || len(current[i].Events) == 0 {
			continue // unknown venue or empty harvest, nothing to resolve
		}
		sess, err := sessions.get(t.static)
		if err != nil {
			current[i].Errors = append(current[i].Errors, err.Error())
			continue
		}
		r := &detail.Resolver{
			Limit:   s.Config.Limit,
			Timeout: s.Config.WaitTimeout(),
			Genres:  band.Genres,
			Exclude: exclude,
		}
		r.Resolve(ctx, sess, t.selectors, &current[i])
	}

	cleaned := event.Clean(current)
	delta := event.Delta(previous, cleaned)

	if err := s.Store.Save(band.Name, cleaned); err != nil {
		return nil, err
	}

	logger.RecordTiming("scout.run", time.Since(start))
	logger.Info("run finished", logger.Fields{
		"band":  band.Name,
		"sites": len(cleaned),
		"new":   len(delta),
	})

	return &RunResult{
		Band:      band.Name,
		CheckedAt: time.Now().UTC(),
		Sites:     cleaned,
		New:       delta,
	}, nil
}

type resolveTarget struct {
	selectors config.Selectors
	static    bool
}

// harvestVenue opens one listing page, runs the harvest loop and closes
// the page again. Session or page failures become site-level errors.
func (s *Scout) harvestVenue(ctx context.Context, sessions *sessionCache, engine *harvest.Engine, venue config.Venue) event.SiteResult {
	sess, err := sessions.get(venue.Static)
	if err != nil {
		return event.SiteResult{URL: venue.URL, Errors: []string{err.Error()}}
	}
	pg, err := sess.NewPage(ctx)
	if err != nil {
		return event.SiteResult{URL: venue.URL, Errors: []string{fmt.Sprintf("opening page: %v", err)}}
	}
	defer pg.Close()

	return engine.Run(pg, venue.URL, venue.Selectors)
}

func (s *Scout) sessionFactory() SessionFactory {
	if s.Sessions != nil {
		return s.Sessions
	}
	return func(static bool) (browser.Session, error) {
		if static {
			return browser.NewStaticSession(s.Config.WaitTimeout()), nil
		}
		return browser.NewRodSession(s.Config.Debug)
	}
}

// sessionCache creates each session kind once and keeps it for the rest of
// the run.
type sessionCache struct {
	factory  SessionFactory
	sessions map[bool]browser.Session
}

func newSessionCache(f SessionFactory) *sessionCache {
	return &sessionCache{factory: f, sessions: make(map[bool]browser.Session)}
}

func (c *sessionCache) get(static bool) (browser.Session, error) {
	if sess, ok := c.sessions[static]; ok {
		return sess, nil
	}
	sess, err := c.factory(static)
	if err != nil {
		return nil, fmt.Errorf("starting %s session: %w", kind(static), err)
	}
	c.sessions[static] = sess
	return sess, nil
}

func (c *sessionCache) closeAll() {
	for k, sess := range c.sessions {
		if err := sess.Close(); err != nil {
			logger.Warn("closing session", logger.Fields{"kind": kind(k), "error": err.Error()})
		}
	}
}

func kind(static bool) string {
	if static {
		return "static"
	}
	return "browser"
}
