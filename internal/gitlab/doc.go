// SPDX-License-Identifier: MPL-2.0

// Package gitlab is a minimal client for a GitLab project's public release
// feed (the /-/releases.json endpoint) and for downloading release
// artifacts. It knows nothing about flatpak; it only fetches and decodes.
package gitlab
