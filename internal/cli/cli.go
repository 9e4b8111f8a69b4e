package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/venue-events/internal/calendar"
	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/notify"
	"github.com/pfrederiksen/venue-events/internal/scout"
	"github.com/pfrederiksen/venue-events/internal/storage"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNewEvents = 2
)

var (
	flagConfig  string
	flagBand    string
	flagDataDir string
	flagFormat  string
	flagLimit   int
	flagTimeout int
	flagDebug   bool
	flagVerbose bool
	flagNotify  bool
	flagDryRun  bool
	flagICSDir  string
	flagSort    string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venue-events",
		Short: "Check venue agendas for events relevant to your bands",
		Long: `Scouts configured venue listings for live events, scores each event
against a band's genre terms, and reports only the events that are new
since the last run.`,
		RunE: runCheck,
	}

	cmd.Flags().StringVar(&flagConfig, "config", "venues.yaml", "Path to the venue/band config file")
	cmd.Flags().StringVar(&flagBand, "band", "", "Band to scout for (default: all configured bands)")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "~/.local/share/venue-events", "Data directory for snapshots")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Detail-page fetch cap per site (overrides config)")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "Per-wait timeout in milliseconds (overrides config)")
	cmd.Flags().BoolVar(&flagDebug, "debug", false, "Run the browser headful")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.Flags().BoolVar(&flagNotify, "notify", false, "Send a Telegram digest for new events")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print the digest instead of sending it")
	cmd.Flags().StringVar(&flagICSDir, "ics-dir", "", "Export each new event as an .ics file into this directory")
	cmd.Flags().StringVar(&flagSort, "sort", "date", "Sort order for new events: date, venue or name")

	return cmd
}

// runCheck is the main command logic
func runCheck(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	order := SortOrder(strings.ToLower(flagSort))
	if order != SortByDate && order != SortByVenue && order != SortByName {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'venue' or 'name')", flagSort)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("limit") {
		cfg.Limit = flagLimit
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flagDebug {
		cfg.Debug = true
	}

	bands, err := selectBands(cfg, flagBand)
	if err != nil {
		return err
	}

	store, err := storage.New(flagDataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s := scout.New(cfg, store)

	result := &OutputResult{CheckedAt: time.Now().UTC()}
	for _, band := range bands {
		run, err := s.Run(ctx, band)
		if err != nil {
			return fmt.Errorf("scouting %s: %w", band, err)
		}
		sortNewEvents(run.New, order)
		result.Runs = append(result.Runs, run)
		result.NewCount += len(run.New)
	}

	if err := WriteOutput(os.Stdout, result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if err := deliver(result); err != nil {
		return err
	}

	if result.NewCount > 0 {
		os.Exit(ExitNewEvents)
	}
	os.Exit(ExitSuccess)
	return nil
}

// deliver handles the optional side channels: Telegram digest and ICS
// export.
func deliver(result *OutputResult) error {
	for _, run := range result.Runs {
		if flagICSDir != "" && len(run.New) > 0 {
			paths, err := calendar.Export(flagICSDir, run.Band, run.New)
			if err != nil {
				return err
			}
			logger.Info("calendar files written", logger.Fields{"band": run.Band, "count": len(paths)})
		}

		if flagNotify {
			digest := notify.FormatDigest(run.Band, run.New)
			if flagDryRun {
				fmt.Fprintf(os.Stderr, "--- digest for %s (dry run) ---\n%s\n", run.Band, digest)
				continue
			}
			tg, err := notify.NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
			if err != nil {
				return fmt.Errorf("telegram: %w (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)", err)
			}
			if err := tg.SendMessage(digest); err != nil {
				return fmt.Errorf("sending digest for %s: %w", run.Band, err)
			}
			logger.Info("digest sent", logger.Fields{"band": run.Band, "summary": notify.FormatSummary(run.Band, run.New)})
		}
	}
	return nil
}

// selectBands resolves the --band flag against the config: a named band
// must exist, no flag means every configured band.
func selectBands(cfg *config.Config, name string) ([]string, error) {
	if name != "" {
		if _, err := cfg.Band(name); err != nil {
			return nil, err
		}
		return []string{name}, nil
	}
	if len(cfg.Bands) == 0 {
		return nil, fmt.Errorf("config has no bands")
	}
	names := make([]string, 0, len(cfg.Bands))
	for _, b := range cfg.Bands {
		names = append(names, b.Name)
	}
	return names, nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
