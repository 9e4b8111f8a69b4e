package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pfrederiksen/venue-events/internal/scout"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt time.Time          `json:"checked_at"`
	Runs      []*scout.RunResult `json:"runs"`
	NewCount  int                `json:"new_count"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.NewCount == 0 {
		fmt.Fprintln(w, "No new events found.")
		return writeErrors(w, result, verbose)
	}

	for _, run := range result.Runs {
		if len(run.New) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n%s (%d new):\n", run.Band, len(run.New))
		for _, ne := range run.New {
			fmt.Fprintf(w, "  NEW: %s", ne.Event.Name)
			if ne.Event.Date != "" {
				fmt.Fprintf(w, " (%s)", ne.Event.Date)
			}
			fmt.Fprintf(w, " @ %s\n", ne.SiteURL)
			for _, snippet := range ne.Event.Relevance {
				fmt.Fprintf(w, "       %s\n", snippet)
			}
			if verbose && ne.Event.DetailLink != "" {
				fmt.Fprintf(w, "       Link: %s\n", ne.Event.DetailLink)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d new event(s)\n", result.NewCount)

	return writeErrors(w, result, verbose)
}

// writeErrors lists per-site errors in verbose mode, so partial failures
// are visible without digging into the snapshot.
func writeErrors(w io.Writer, result *OutputResult, verbose bool) error {
	if !verbose {
		return nil
	}
	for _, run := range result.Runs {
		for _, site := range run.Sites {
			for _, e := range site.Errors {
				fmt.Fprintf(w, "WARN %s [%s]: %s\n", run.Band, site.URL, e)
			}
		}
	}
	return nil
}
