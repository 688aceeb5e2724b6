package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lukemcguire/linkwalker/config"
	"github.com/lukemcguire/linkwalker/crawler"
	"github.com/lukemcguire/linkwalker/result"
	"github.com/lukemcguire/linkwalker/tui"
)

// Output formats for the check command.
const (
	formatTUI   = "tui"
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Crawl a site and report broken links",
		Long: `Check crawls the site at <url> and validates every link it finds.

The process exits with status 1 when any link is unreachable.

Examples:
  # Interactive progress and summary
  linkwalker check https://example.com

  # Two levels deep, machine-readable
  linkwalker check -d 2 -f json https://example.com > report.json

  # A documentation portal rendered by scripts
  linkwalker check -s rendered https://docs.example.com/Default.htm`,
		Args: cobra.ExactArgs(1),
		RunE: runCheckCmd,
	}

	cmd.Flags().IntP("max-depth", "d", 0, "Maximum link depth from the seed (default from config)")
	cmd.Flags().StringP("strategy", "s", "", "Crawl strategy: static or rendered (default from config)")
	cmd.Flags().StringP("format", "f", formatTUI, "Output format: tui, table, json or csv")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout (table, json and csv)")

	cmd.Flags().Int("concurrency", 0, "Concurrent link probes per page")
	cmd.Flags().Float64("rate-limit", 0, "Probe requests per second, 0 for unlimited")
	cmd.Flags().Int("retries", 0, "Retries for 429, 5xx and transient network errors")
	cmd.Flags().String("scope", "", "Which links are followed: prefix or host")
	cmd.Flags().String("visited", "", "Visited-set backend: memory or bloom")
	cmd.Flags().Duration("timeout", 0, "Deadline for the whole crawl")
	cmd.Flags().Bool("skip-non-http", false, "Drop mailto:, tel: and other non-http links")

	return cmd
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case formatTUI, formatTable, formatJSON, formatCSV:
	default:
		return fmt.Errorf("unknown format %q (want tui, table, json or csv)", format)
	}

	cfg, logger, err := loadConfig(cmd, format == formatTUI)
	if err != nil {
		return err
	}
	if err := applyCheckFlags(cmd, cfg); err != nil {
		return err
	}

	seed := args[0]
	if err := crawler.ValidateSeed(seed); err != nil {
		return err
	}
	maxDepth := cfg.Crawl.DefaultMaxDepth
	if cmd.Flags().Changed("max-depth") {
		maxDepth, _ = cmd.Flags().GetInt("max-depth")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress chan crawler.CrawlEvent
	if format == formatTUI {
		progress = make(chan crawler.CrawlEvent, 100)
	}
	strategies, err := buildStrategies(cfg, logger, progress)
	if err != nil {
		return err
	}
	strategy := strategies[cfg.Crawl.Strategy]

	logger.Info().Str("url", seed).Int("max_depth", maxDepth).Str("strategy", cfg.Crawl.Strategy).Msg("check started")

	if format == formatTUI {
		report, err := runTUI(ctx, strategy, seed, maxDepth, progress)
		if err != nil {
			return err
		}
		if report.HasBroken() {
			return errBrokenLinks
		}
		return nil
	}

	start := time.Now()
	report, err := strategy.Crawl(ctx, seed, maxDepth)
	if err != nil {
		return err
	}
	stats := report.Stats()
	stats.Duration = time.Since(start)

	err = writeOutput(cmd, func(w io.Writer) error {
		return writeReport(w, format, report, stats)
	})
	if err != nil {
		return err
	}

	if report.HasBroken() {
		return errBrokenLinks
	}
	return nil
}

// applyCheckFlags overrides config values with the flags that were set.
func applyCheckFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		s, _ := flags.GetString("strategy")
		cfg.Crawl.Strategy = strings.ToLower(strings.TrimSpace(s))
	}
	if flags.Changed("concurrency") {
		cfg.Crawl.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("rate-limit") {
		cfg.Crawl.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("retries") {
		cfg.Crawl.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("scope") {
		s, _ := flags.GetString("scope")
		cfg.Crawl.Scope = strings.ToLower(strings.TrimSpace(s))
	}
	if flags.Changed("visited") {
		s, _ := flags.GetString("visited")
		cfg.Crawl.Visited = strings.ToLower(strings.TrimSpace(s))
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		cfg.Crawl.CrawlTimeout = config.DurationFrom(d)
	}
	if flags.Changed("skip-non-http") {
		cfg.Crawl.SkipNonHTTP, _ = flags.GetBool("skip-non-http")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

// runTUI runs the crawl behind the interactive progress view.
func runTUI(ctx context.Context, strategy crawler.Strategy, seed string, maxDepth int, progress <-chan crawler.CrawlEvent) (result.CrawlReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewModel(ctx, cancel, strategy, seed, maxDepth, progress)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("run tui: %w", err)
	}

	m := final.(tui.Model)
	if m.Err() != nil {
		return nil, m.Err()
	}
	if !m.Done() {
		return nil, fmt.Errorf("check interrupted: %w", context.Canceled)
	}
	return m.Report(), nil
}

func writeReport(w io.Writer, format string, report result.CrawlReport, stats result.CrawlStats) error {
	switch format {
	case formatJSON:
		return result.WriteJSON(w, report)
	case formatCSV:
		return result.WriteCSV(w, report)
	default:
		result.PrintReport(w, report, stats)
		return nil
	}
}
