// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for aagl-sync.
package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/an-anime-team/flatpak-builds/internal/config"
	"github.com/an-anime-team/flatpak-builds/internal/gitlab"
	"github.com/an-anime-team/flatpak-builds/internal/syncer"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// metainfoOverride replaces the configured metainfo path
	metainfoOverride string
	// manifestOverride replaces the configured manifest path
	manifestOverride string

	// rootCmd represents the base command. Invoked without a subcommand it
	// runs a full synchronization pass, so a scheduled job can simply call
	// the binary with no arguments.
	rootCmd = &cobra.Command{
		Use:   "aagl-sync",
		Short: "Sync the An Anime Game Launcher flatpak files with upstream releases",
		Long: TitleStyle.Render("aagl-sync") + SubtitleStyle.Render(" - flatpak release synchronizer") + `

aagl-sync compares the version recorded in the AppStream metainfo file
against the launcher's GitLab release feed. When a newer release exists it
prepends a release entry (with the extracted changelog) to the metainfo
file and points the flatpak-builder manifest at the new AppImage, with a
freshly computed SHA-256.

Both files are rewritten atomically, and only after every network, parse,
and hash step has succeeded.

` + SubtitleStyle.Render("Examples:") + `
  aagl-sync                 Run a full synchronization pass
  aagl-sync check           Report whether an update is available
  aagl-sync check --notes   Also render the latest release notes
  aagl-sync sync --yes      Sync without the confirmation prompt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return runSyncCommand(cmd, yes)
		},
	}
)

func init() {
	rootCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt before rewriting files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/aagl-sync/config.yml)")
	rootCmd.PersistentFlags().StringVar(&metainfoOverride, "metainfo", "", "path to the metainfo XML file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&manifestOverride, "manifest", "", "path to the flatpak-builder manifest (overrides config)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(checkCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return Version + " (commit: " + Commit + ", built: " + BuildDate + ")"
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies CLI path overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if metainfoOverride != "" {
		cfg.MetainfoPath = metainfoOverride
	}
	if manifestOverride != "" {
		cfg.ManifestPath = manifestOverride
	}

	return cfg, nil
}

// newLogger builds the progress logger. User-facing results go to stdout;
// progress and diagnostics go to stderr through this logger.
func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// buildSyncer wires config, GitLab client, and logger into a Syncer.
func buildSyncer() (*syncer.Syncer, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	client := gitlab.NewClient(cfg.ReleasesURL,
		gitlab.WithUserAgent("aagl-sync/"+Version),
		gitlab.WithTimeouts(cfg.ListTimeout, cfg.DownloadTimeout),
	)

	return syncer.New(*cfg, client, newLogger()), cfg, nil
}
