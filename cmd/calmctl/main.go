// Package main provides the calmctl binary entry point.
// Calmctl resolves Gemara Layer 3 policies into CALM control requirement
// documents and validates gemara:// cross-references in architecture files.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/calmctl/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "calmctl"
)

// rootOptions carries persistent flags shared by all subcommands.
type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "calmctl",
		Short: "Gemara policy resolution and CALM control validation",
		Long: `Calmctl turns Gemara Layer 3 policies into CALM control requirement
documents and validates architecture cross-references against them.

It provides:
- resolve: merge policy modifications onto Layer 2 base controls and
  generate one control requirement file per assessment requirement
- validate: check that every gemara:// URL referenced by an architecture
  corpus resolves to a conformant control requirement document`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	cmd.AddCommand(resolveCmd(opts))
	cmd.AddCommand(validateCmd(opts))

	return cmd
}

// loadConfig loads the config file (or defaults), applies the log-level
// override, validates, and installs the default slog logger.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(cfg.Log.Level)
	return cfg, nil
}

// configureLogging installs a text slog handler on stderr at the given
// level.
func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// override returns the flag value when set, else the config value.
func override(flag, fromConfig string) string {
	if flag != "" {
		return flag
	}
	return fromConfig
}
