package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/calmctl/artifact"
	"github.com/c360studio/calmctl/crossref"
)

// validateFlags holds the validate command's flag values. Empty values fall
// back to the loaded config.
type validateFlags struct {
	architectureDir string
	controlsDir     string
	pattern         string
	watch           bool
}

func validateCmd(opts *rootOptions) *cobra.Command {
	flags := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate gemara:// cross-references against control files",
		Long: `Validate scans the architecture corpus for gemara:// URLs and checks
that each resolves to a control requirement document with a matching
$id and the required fields for its layer. Policy-id mismatches are
reported as warnings and do not fail the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, flags)
		},
	}

	cmd.Flags().StringVar(&flags.architectureDir, "architecture-dir", "", "Directory containing CALM architecture files")
	cmd.Flags().StringVar(&flags.controlsDir, "controls-dir", "", "Directory containing control requirement files")
	cmd.Flags().StringVar(&flags.pattern, "pattern", "", "Architecture file glob within the architecture directory")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Re-run validation when either directory changes")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *rootOptions, flags *validateFlags) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := slog.Default()

	architectureDir := override(flags.architectureDir, cfg.Validation.ArchitectureDir)
	controlsDir := override(flags.controlsDir, cfg.Validation.ControlsDir)
	pattern := override(flags.pattern, cfg.Validation.Pattern)

	if err := requireDir("architecture", architectureDir); err != nil {
		return err
	}
	if err := requireDir("controls", controlsDir); err != nil {
		return err
	}

	run := func(ctx context.Context) (*crossref.Report, error) {
		return validateOnce(architectureDir, controlsDir, pattern, logger)
	}

	report, err := run(cmd.Context())
	if err != nil {
		return err
	}

	if !flags.watch {
		if report.Outcome() == crossref.OutcomeHasErrors {
			return fmt.Errorf("found %d validation error(s)", len(report.Errors))
		}
		return nil
	}

	// Watch mode: keep re-validating until interrupted. The process exits 0
	// on signal; each run's outcome is reported as it happens.
	signalCtx, signalCancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	watcher, err := crossref.NewWatcher([]string{architectureDir, controlsDir}, time.Duration(cfg.Validation.Debounce), logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	return watcher.Run(signalCtx, func(ctx context.Context) {
		if _, err := run(ctx); err != nil {
			logger.Error("Validation run failed", "error", err)
		}
	})
}

// validateOnce performs one extraction + validation pass and prints the
// report.
func validateOnce(architectureDir, controlsDir, pattern string, logger *slog.Logger) (*crossref.Report, error) {
	docs, err := crossref.LoadArchitectureDir(architectureDir, pattern, logger)
	if err != nil {
		return nil, err
	}
	urls := crossref.ExtractURLs(docs)

	corpus, err := artifact.NewDirStore(controlsDir, logger).Load()
	if err != nil {
		return nil, err
	}

	report := crossref.NewValidator(logger).Validate(urls, corpus)
	printReport(report)
	return report, nil
}

// printReport renders a validation report to stdout.
func printReport(report *crossref.Report) {
	if report.Outcome() == crossref.OutcomeNoReferences {
		fmt.Println("No gemara:// URLs found in architecture files")
		return
	}

	for _, w := range report.Warnings {
		fmt.Printf("warning: %s: %s\n", w.URL, w.Message)
	}
	if len(report.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, e := range report.Errors {
			if e.Path != "" {
				fmt.Printf("  %s: %s\n", e.Path, e.Message)
			} else {
				fmt.Printf("  %s\n", e.Message)
			}
		}
		fmt.Printf("Found %d error(s)\n", len(report.Errors))
		return
	}
	fmt.Printf("All %d referenced control files validated successfully\n", len(report.URLs))
}

// requireDir fails with a command-level error when the directory is absent.
func requireDir(name, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%s directory not found: %s", name, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path is not a directory: %s", name, dir)
	}
	return nil
}
