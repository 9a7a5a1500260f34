// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/an-anime-team/flatpak-builds/internal/syncer"
)

// checkParams bundles the dependencies and flags for the check command.
type checkParams struct {
	stdout io.Writer
	sync   *syncer.Syncer
	notes  bool // --notes flag: render the latest release description
}

// checkCmd reports whether an update is available without touching any file.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether a newer release is available, without updating",
	Long: `Report whether a newer release is available, without updating.

check performs the read-only half of a sync: it parses the local metainfo,
fetches the GitLab release feed, and compares versions. No file is modified
regardless of the outcome.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true

		notes, _ := cmd.Flags().GetBool("notes")

		s, cfg, err := buildSyncer()
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
			return &ExitError{Code: 1, Err: err}
		}

		p := checkParams{
			stdout: cmd.OutOrStdout(),
			sync:   s,
			notes:  notes,
		}

		if err := runCheck(cmd.Context(), p); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), formatSyncError(err, cfg.MetainfoPath, cfg.ManifestPath))
			return &ExitError{Code: classifySyncExitCode(err), Err: err}
		}

		return nil
	},
}

func init() {
	checkCmd.Flags().Bool("notes", false, "render the latest release's markdown notes")
}

// runCheck is the core check logic, separated from Cobra for testability.
func runCheck(ctx context.Context, p checkParams) error {
	status, err := p.sync.Check(ctx)
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}

	fmt.Fprintf(p.stdout, "Current flatpak release: %s\n", status.CurrentVersion)
	fmt.Fprintf(p.stdout, "Latest release on GitLab: %s, released on %s\n", status.LatestTag, status.LatestDate)

	if status.UpdateAvailable {
		fmt.Fprintf(p.stdout, "\nAn update is available: %s → %s\n", status.CurrentVersion, status.LatestTag)
		fmt.Fprintln(p.stdout, "Run 'aagl-sync sync' to apply it.")
	} else {
		fmt.Fprintf(p.stdout, "\n%s\n", status.Message)
	}

	if p.notes && status.Release != nil {
		rendered, renderErr := glamour.Render(status.Release.Description, "dark")
		if renderErr != nil {
			// Rendering is cosmetic; fall back to the raw markdown.
			fmt.Fprintf(p.stdout, "\n%s\n", status.Release.Description)
			return nil
		}
		fmt.Fprint(p.stdout, rendered)
	}

	return nil
}
