// SPDX-License-Identifier: MPL-2.0

// Package relnotes extracts structured data from the free-text markdown
// description attached to a GitLab release: the changelog bullet list and
// the uploaded AppImage path.
//
// The description format is an informal upstream convention, not an API
// contract. All parsing failures wrap ErrFormatDrift so callers can tell
// "upstream changed the description format" apart from network or file
// errors and abort before touching any local file.
package relnotes

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// changesMarker introduces the changelog section of a release description.
const changesMarker = "## What's changed?\n\n"

// ErrFormatDrift indicates the release description no longer matches the
// expected upstream format.
var ErrFormatDrift = errors.New("release description format drift")

// FormatDriftError reports which expectation about the description text was
// violated. It wraps ErrFormatDrift so callers can use errors.Is for
// classification.
type FormatDriftError struct {
	// Expected is the marker or pattern that was searched for.
	Expected string
}

// Error names the missing marker or pattern so an operator can diff it
// against the live description.
func (e *FormatDriftError) Error() string {
	return fmt.Sprintf("expected %s in release description: %s", e.Expected, ErrFormatDrift)
}

// Unwrap returns ErrFormatDrift so callers can use errors.Is.
func (e *FormatDriftError) Unwrap() error { return ErrFormatDrift }

// Changes extracts the changelog bullet list from a release description.
//
// The changelog is the text between the "## What's changed?" marker and the
// next blank line, split on the "- " bullet delimiter. Fragments are
// whitespace-trimmed and empty ones dropped. Returns a *FormatDriftError if
// the marker is absent or no bullet survives trimming.
func Changes(description string) ([]string, error) {
	_, section, found := strings.Cut(description, changesMarker)
	if !found {
		return nil, &FormatDriftError{Expected: fmt.Sprintf("marker %q", strings.TrimSpace(changesMarker))}
	}

	// The section ends at the first blank line after the marker.
	section, _, _ = strings.Cut(section, "\n\n")

	var changes []string
	for _, item := range strings.Split(section, "- ") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		changes = append(changes, item)
	}

	if len(changes) == 0 {
		return nil, &FormatDriftError{Expected: `at least one "- " bullet after the changelog marker`}
	}

	return changes, nil
}

// ArtifactPath locates the uploaded build artifact inside a release
// description. GitLab upload links have the shape
// /uploads/<hex>/<filename>; artifactName is the fixed filename to match
// (e.g. "An_Anime_Game_Launcher.AppImage"). Returns the matched path
// fragment, or a *FormatDriftError if no upload link for that filename is
// present.
func ArtifactPath(description, artifactName string) (string, error) {
	pattern := `/uploads/[0-9a-f]+/` + regexp.QuoteMeta(artifactName)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("compiling artifact pattern: %w", err)
	}

	match := re.FindString(description)
	if match == "" {
		return "", &FormatDriftError{Expected: fmt.Sprintf("upload path matching %q", pattern)}
	}

	return match, nil
}
