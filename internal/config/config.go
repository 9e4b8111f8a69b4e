// Package config loads the venue-events YAML configuration: the bands to
// scout for, the registry of venue sites with their CSS selectors, and the
// run-wide fetch limit and wait timeout.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLimit caps how many two-page detail fetches happen per site
	// per run. Kept small so repeated runs against ticketing domains do
	// not look like a scraper burst.
	DefaultLimit = 5

	// DefaultTimeoutMS bounds each selector wait and navigation.
	DefaultTimeoutMS = 10000
)

// Config is the top-level venue-events configuration.
type Config struct {
	Bands  []Band           `yaml:"bands"`
	Venues map[string]Venue `yaml:"venues"`

	// Limit is the per-site detail-fetch cap. Timeout is per wait
	// operation, in milliseconds.
	Limit   int  `yaml:"limit"`
	Timeout int  `yaml:"timeout"`
	Debug   bool `yaml:"debug"`
}

// Band describes one act to scout events for.
type Band struct {
	Name    string   `yaml:"name"`
	Genres  []string `yaml:"genres"`
	Venues  []string `yaml:"venues"`  // keys into the venue registry
	Filters []string `yaml:"filters"` // event-name exclusions, substring or /regex/
}

// Venue is one registry entry: where the listing lives and how to read it.
type Venue struct {
	URL       string    `yaml:"url"`
	Static    bool      `yaml:"static"` // plain HTTP fetch, no browser
	Selectors Selectors `yaml:"selectors"`
}

// Selectors describes how to extract events from a listing page. The
// single-page and two-page variants share the container/name/date fields;
// the variant is decided once by the presence of DetailLink.
type Selectors struct {
	Container   string `yaml:"container"`
	Name        string `yaml:"name"`
	Date        string `yaml:"date"`
	Description string `yaml:"description,omitempty"` // single-page: text lives in the row
	LoadMore    string `yaml:"load_more,omitempty"`
	Loader      string `yaml:"loader,omitempty"` // spinner shown while more rows load

	DetailLink string           `yaml:"detail_link,omitempty"` // two-page: anchor in the row
	Details    []DetailSelector `yaml:"details,omitempty"`     // per-domain detail-page selectors
}

// DetailSelector targets description text on detail pages whose URL
// contains Domain. LineupLinks and ArtistDescription enable the third-level
// per-artist bio fetch.
type DetailSelector struct {
	Domain            string `yaml:"domain"`
	Description       string `yaml:"description"`
	LineupLinks       string `yaml:"lineup_links,omitempty"`
	ArtistDescription string `yaml:"artist_description,omitempty"`
}

// TwoPage reports whether event descriptions live behind a detail link.
func (s Selectors) TwoPage() bool {
	return s.DetailLink != ""
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeoutMS
	}
}

func (c *Config) validate() error {
	for _, b := range c.Bands {
		if b.Name == "" {
			return fmt.Errorf("config: band with empty name")
		}
		if len(b.Venues) == 0 {
			return fmt.Errorf("config: band %q has no venues", b.Name)
		}
	}
	for id, v := range c.Venues {
		if v.URL == "" {
			return fmt.Errorf("config: venue %q has no url", id)
		}
		if v.Selectors.Container == "" {
			return fmt.Errorf("config: venue %q has no container selector", id)
		}
	}
	return nil
}

// Band looks up a band by name, case-sensitively.
func (c *Config) Band(name string) (Band, error) {
	for _, b := range c.Bands {
		if b.Name == name {
			return b, nil
		}
	}
	return Band{}, fmt.Errorf("config: no band named %q", name)
}

// WaitTimeout returns the per-operation wait timeout as a duration.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}
