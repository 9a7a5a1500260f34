// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/an-anime-team/flatpak-builds/internal/gitlab"
	"github.com/an-anime-team/flatpak-builds/internal/issue"
	"github.com/an-anime-team/flatpak-builds/internal/manifest"
	"github.com/an-anime-team/flatpak-builds/internal/metainfo"
	"github.com/an-anime-team/flatpak-builds/internal/relnotes"
	"github.com/an-anime-team/flatpak-builds/internal/syncer"
	"github.com/an-anime-team/flatpak-builds/internal/tui"
)

// syncParams bundles the dependencies and flags for the sync command,
// enabling the core logic in runSync to be tested without a real Cobra
// command or live GitLab calls.
type syncParams struct {
	stdout       io.Writer
	stderr       io.Writer
	sync         *syncer.Syncer
	metainfoPath string // for the revert hint printed after an update
	manifestPath string
	yes          bool // --yes flag: skip confirmation prompt
}

// syncCmd runs the full synchronization pass. The root command delegates
// here when invoked without a subcommand.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the release feed and update the flatpak files if needed",
	Long: `Fetch the release feed and update the flatpak files if needed.

When the newest remote release is ahead of the version recorded in the
metainfo file, sync prepends a release entry with the extracted changelog,
downloads and hashes the new AppImage, and rewrites the manifest's source
entry. With no update available both files are left byte-identical.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		return runSyncCommand(cmd, yes)
	},
}

func init() {
	syncCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt before rewriting files")
}

// runSyncCommand builds the service wiring and executes runSync, mapping
// any failure to a styled message and a classified exit code.
func runSyncCommand(cmd *cobra.Command, yes bool) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	s, cfg, err := buildSyncer()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
		return &ExitError{Code: 1, Err: err}
	}

	p := syncParams{
		stdout:       cmd.OutOrStdout(),
		stderr:       cmd.ErrOrStderr(),
		sync:         s,
		metainfoPath: cfg.MetainfoPath,
		manifestPath: cfg.ManifestPath,
		yes:          yes,
	}

	if err := runSync(cmd.Context(), p); err != nil {
		fmt.Fprintln(p.stderr, formatSyncError(err, p.metainfoPath, p.manifestPath))
		return &ExitError{Code: classifySyncExitCode(err), Err: err}
	}

	return nil
}

// runSync is the core sync logic, separated from Cobra for testability.
// All user-facing output goes through p.stdout and p.stderr.
//
// Flow:
//  1. Check the feed and compare versions.
//  2. If up to date, print status and return (files untouched).
//  3. Otherwise confirm with the user (unless --yes), then apply: extract
//     the changelog, hash the new artifact, and rewrite both files.
func runSync(ctx context.Context, p syncParams) error {
	status, err := p.sync.Check(ctx)
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}

	fmt.Fprintf(p.stdout, "Current flatpak release: %s\n", status.CurrentVersion)
	fmt.Fprintf(p.stdout, "Latest release on GitLab: %s, released on %s\n", status.LatestTag, status.LatestDate)

	if !status.UpdateAvailable {
		fmt.Fprintln(p.stdout, status.Message)
		return nil
	}

	fmt.Fprintln(p.stdout, "New version available on GitLab!")

	if !p.yes {
		confirmed, confirmErr := tui.Confirm(tui.ConfirmOptions{
			Title:       fmt.Sprintf("Update flatpak files from %s to %s?", status.CurrentVersion, status.LatestTag),
			Description: "Both the metainfo and the manifest will be rewritten.",
		})
		if confirmErr != nil {
			return fmt.Errorf("confirmation prompt: %w", confirmErr)
		}
		if !confirmed {
			return nil
		}
	}

	fmt.Fprintf(p.stdout, "\nDownloading and hashing the %s artifact...\n", status.LatestTag)

	result, err := p.sync.Apply(ctx, status.Release)
	if err != nil {
		return fmt.Errorf("applying update: %w", err)
	}

	fmt.Fprintf(p.stdout, "Download URL: %s\n", ValueStyle.Render(result.ArtifactURL))
	fmt.Fprintf(p.stdout, "SHA256: %s\n", ValueStyle.Render(result.SHA256))
	fmt.Fprintln(p.stdout, SuccessStyle.Render(fmt.Sprintf("Successfully updated to %s", result.NewVersion)))
	fmt.Fprintf(p.stdout, "\nIf something looks wrong, revert with:\n  git checkout %s %s\n", p.metainfoPath, p.manifestPath)

	return nil
}

// classifySyncExitCode maps a sync error to the appropriate process exit
// code. Parse failures and format drift use exit code 1
// (operator-correctable); network and other transient failures use 2.
func classifySyncExitCode(err error) int {
	var metaErr *metainfo.ParseError
	var mfErr *manifest.ParseError

	switch {
	case errors.Is(err, relnotes.ErrFormatDrift):
		return 1
	case errors.As(err, &metaErr), errors.As(err, &mfErr):
		return 1
	default:
		return 2
	}
}

// formatSyncError produces a user-friendly error message with remediation
// guidance tailored to the specific error type.
func formatSyncError(err error, metainfoPath, manifestPath string) string {
	revertHint := fmt.Sprintf("If the local files were already modified, revert with 'git checkout %s %s'", metainfoPath, manifestPath)

	var driftErr *relnotes.FormatDriftError
	if errors.As(err, &driftErr) {
		return issue.NewErrorContext().
			WithOperation("parse the release description").
			WithSuggestion("The upstream description format likely changed; adjust the parsing assumptions").
			WithSuggestion(revertHint).
			Wrap(err).
			Build().Format()
	}

	var fetchErr *gitlab.FetchError
	if errors.As(err, &fetchErr) {
		return issue.NewErrorContext().
			WithOperation("fetch from GitLab").
			WithResource(fetchErr.URL).
			WithSuggestion("Check your network connection and try again").
			Wrap(err).
			Build().Format()
	}

	var metaErr *metainfo.ParseError
	if errors.As(err, &metaErr) {
		return issue.NewErrorContext().
			WithOperation("parse the metainfo file").
			WithResource(metainfoPath).
			WithSuggestion(revertHint).
			Wrap(err).
			Build().Format()
	}

	var mfErr *manifest.ParseError
	if errors.As(err, &mfErr) {
		return issue.NewErrorContext().
			WithOperation("parse the manifest file").
			WithResource(manifestPath).
			WithSuggestion(revertHint).
			Wrap(err).
			Build().Format()
	}

	return issue.WrapWithOperation(err, "synchronize flatpak files").Format()
}
