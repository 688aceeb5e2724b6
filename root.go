package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lukemcguire/linkwalker/config"
	"github.com/lukemcguire/linkwalker/log"
)

// errBrokenLinks makes the process exit non-zero after a report that
// contains unreachable links. The report itself is the message.
var errBrokenLinks = errors.New("broken links found")

// NewRootCmd creates the root command for linkwalker.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkwalker",
		Short: "Find broken links on a website",
		Long: `linkwalker crawls a website from a seed URL and checks every link it finds.

The static strategy fetches HTML and follows in-scope links depth-first.
The rendered strategy drives a headless browser through sites whose
navigation only exists after scripts run.

Run it once from the command line with "check", or expose it over HTTP
with "serve".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (YAML)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (default from config)")
	cmd.PersistentFlags().Bool("log-pretty", false, "Human-readable console logs instead of JSON")
	cmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewWalkCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	if !errors.Is(err, errBrokenLinks) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(1)
}

// loadConfig reads --config, applies the logging flags and installs the
// process logger. With quiet set, logs are dropped unless --log-file names
// a destination.
func loadConfig(cmd *cobra.Command, quiet bool) (*config.Config, zerolog.Logger, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("configuration error: %w", err)
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-pretty") {
		cfg.Logging.Pretty, _ = flags.GetBool("log-pretty")
	}

	var w io.Writer = cmd.ErrOrStderr()
	if quiet {
		w = io.Discard
	}
	if logFile, _ := flags.GetString("log-file"); logFile != "" {
		fh, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("open log file: %w", err)
		}
		cobra.OnFinalize(func() { _ = fh.Close() })
		w = fh
	}
	if err := log.Setup(w, cfg.Logging.Level, cfg.Logging.Pretty); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log.NewLogger(cmd.Name()), nil
}

// writeOutput hands write the --output file, or stdout when the flag is
// empty. The file's close error is returned when the write succeeded.
func writeOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(fh); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
