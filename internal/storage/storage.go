package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/venue-events/internal/event"
	"github.com/pfrederiksen/venue-events/internal/logger"
)

// Storage persists one JSON snapshot per band under the data directory.
// The on-disk shape is a bare array of site results; the band identity
// lives in the filename.
type Storage struct {
	dataDir string
}

// New creates a Storage rooted at dataDir, creating it if needed. A
// leading ~ expands to the home directory.
func New(dataDir string) (*Storage, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{dataDir: dataDir}, nil
}

func (s *Storage) snapshotPath(band string) string {
	return filepath.Join(s.dataDir, slug(band)+".json")
}

// Load returns the band's previous site results. A missing or unreadable
// snapshot is not an error: the run proceeds as a first run against an
// empty previous state, and a corrupt file is logged and overwritten on
// the next save.
func (s *Storage) Load(band string) []event.SiteResult {
	path := s.snapshotPath(band)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("reading snapshot", logger.Fields{"path": path, "error": err.Error()})
		}
		return nil
	}

	var sites []event.SiteResult
	if err := json.Unmarshal(data, &sites); err != nil {
		logger.Warn("snapshot is malformed, treating as empty", logger.Fields{"path": path, "error": err.Error()})
		return nil
	}

	return sites
}

// Save writes the band's site results as its new snapshot, overwriting the
// previous one.
func (s *Storage) Save(band string, sites []event.SiteResult) error {
	if sites == nil {
		sites = []event.SiteResult{}
	}

	data, err := json.MarshalIndent(sites, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	path := s.snapshotPath(band)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// slug turns a band name into a stable filename component.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "band"
	}
	return b.String()
}
