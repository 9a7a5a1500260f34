// SPDX-License-Identifier: MPL-2.0

// Package syncer keeps the flatpak packaging files in sync with the
// upstream GitLab releases of an-anime-game-launcher.
//
// The package is organized around a Check/Apply split:
//   - Check reads the local metainfo, fetches the release feed, and decides
//     whether the newest remote release is ahead of the recorded version.
//   - Apply extracts the changelog and artifact reference from the release
//     description, hashes the downloaded artifact, and rewrites the
//     metainfo and manifest files atomically.
//
// No file is modified until every fetch, parse, and hash step has
// succeeded; both rewrites happen from fully built in-memory contents via
// temp-file-and-rename.
package syncer
