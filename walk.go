package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lukemcguire/linkwalker/walker"
)

// NewWalkCmd creates the walk command.
func NewWalkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk <url>",
		Short: "List the menu pages of a rendered site and the links on each",
		Long: `Walk drives a browser through a script-rendered documentation site and
prints, as JSON, every menu page with the links its content contains.
Nothing is validated.`,
		Args: cobra.ExactArgs(1),
		RunE: runWalkCmd,
	}
	cmd.Flags().StringP("output", "o", "", "Write the JSON to a file instead of stdout")
	return cmd
}

func runWalkCmd(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := walker.New(cfg.Launcher(), nil, cfg.WalkerConfig(),
		walker.WithLogger(logger.With().Str("engine", cfg.Rendering.Engine).Logger()))
	task, err := w.Walk(ctx, args[0])
	if err != nil {
		return err
	}

	return writeOutput(cmd, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(task); err != nil {
			return fmt.Errorf("write crawl task: %w", err)
		}
		return nil
	})
}
