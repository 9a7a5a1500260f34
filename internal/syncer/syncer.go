// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/semver"

	"github.com/an-anime-team/flatpak-builds/internal/config"
	"github.com/an-anime-team/flatpak-builds/internal/gitlab"
	"github.com/an-anime-team/flatpak-builds/internal/manifest"
	"github.com/an-anime-team/flatpak-builds/internal/metainfo"
	"github.com/an-anime-team/flatpak-builds/internal/relnotes"
)

type (
	// Status holds the result of a version comparison between the locally
	// recorded release and the newest remote release.
	Status struct {
		CurrentVersion  string          // Highest version recorded in the metainfo file
		LatestTag       string          // Tag of the newest remote release (by released_at)
		LatestDate      string          // Date portion of its released_at timestamp
		Release         *gitlab.Release // Full release info (nil when up to date)
		UpdateAvailable bool            // True when LatestTag is ahead of CurrentVersion
		Message         string          // Human-readable status line
	}

	// Result describes a completed update.
	Result struct {
		NewVersion  string
		ArtifactURL string
		SHA256      string
	}

	// Outcome is the contract of a full synchronization pass.
	Outcome struct {
		Updated    bool
		NewVersion string
	}

	// Syncer composes the GitLab client, description parsing, and the two
	// document editors into an end-to-end synchronization flow. It is the
	// primary facade of this module.
	Syncer struct {
		cfg    config.Config
		client *gitlab.Client
		logger *log.Logger
	}
)

// New creates a Syncer. A nil logger discards all progress output.
func New(cfg config.Config, client *gitlab.Client, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Syncer{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Check compares the version recorded in the local metainfo file against
// the newest remote release. It is read-only: no file is modified
// regardless of the outcome.
//
// The newest remote release is the one with the maximal released_at
// timestamp, matching how the upstream feed has always been consumed. When
// that entry does not also carry the highest tag, a warning is logged; the
// update gate itself compares tags, so a backported release with an older
// tag is reported but never applied.
func (s *Syncer) Check(ctx context.Context) (*Status, error) {
	doc, err := metainfo.Load(s.cfg.MetainfoPath)
	if err != nil {
		return nil, err
	}

	current, err := doc.CurrentVersion()
	if err != nil {
		return nil, err
	}
	s.logger.Info("current flatpak release", "version", current.Version)

	releases, err := s.client.ListReleases(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := gitlab.LatestByDate(releases)
	if err != nil {
		return nil, fmt.Errorf("selecting latest release: %w", err)
	}

	date := releaseDate(latest.ReleasedAt)
	s.logger.Info("latest release on GitLab", "tag", latest.Tag, "released", date)

	s.warnTagDivergence(releases, latest.Tag)

	if latest.Tag <= current.Version {
		return &Status{
			CurrentVersion: current.Version,
			LatestTag:      latest.Tag,
			LatestDate:     date,
			Message:        "Flatpak is already up to date.",
		}, nil
	}

	return &Status{
		CurrentVersion:  current.Version,
		LatestTag:       latest.Tag,
		LatestDate:      date,
		Release:         latest,
		UpdateAvailable: true,
		Message:         fmt.Sprintf("New version available on GitLab: %s -> %s", current.Version, latest.Tag),
	}, nil
}

// Apply performs the update for the given release: it extracts the
// changelog and artifact reference from the release description, downloads
// and hashes the artifact, patches both documents in memory, and only then
// rewrites the two files atomically.
func (s *Syncer) Apply(ctx context.Context, release *gitlab.Release) (*Result, error) {
	if release == nil {
		return nil, errors.New("release must not be nil")
	}

	changes, err := relnotes.Changes(release.Description)
	if err != nil {
		return nil, fmt.Errorf("extracting changelog: %w", err)
	}

	path, err := relnotes.ArtifactPath(release.Description, s.cfg.ArtifactName)
	if err != nil {
		return nil, fmt.Errorf("locating artifact: %w", err)
	}
	artifactURL := s.cfg.ArtifactBaseURL + path

	s.logger.Info("downloading artifact", "url", artifactURL)
	digest, err := s.hashArtifact(ctx, artifactURL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("artifact hashed", "sha256", digest)

	// Build both new file contents in memory before touching either path,
	// keeping the partial-write window down to the two renames below.
	doc, err := metainfo.Load(s.cfg.MetainfoPath)
	if err != nil {
		return nil, err
	}
	doc.PrependRelease(release.Tag, releaseDate(release.ReleasedAt), changes)

	metaBytes, err := doc.Bytes()
	if err != nil {
		return nil, err
	}

	mf, err := manifest.Load(s.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	if err := mf.SetSource(s.cfg.ModuleName, artifactURL, digest); err != nil {
		return nil, err
	}

	mfBytes, err := mf.Bytes()
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(s.cfg.MetainfoPath, metaBytes); err != nil {
		return nil, fmt.Errorf("updating metainfo: %w", err)
	}
	if err := writeFileAtomic(s.cfg.ManifestPath, mfBytes); err != nil {
		return nil, fmt.Errorf("updating manifest: %w", err)
	}

	s.logger.Info("files updated",
		"metainfo", s.cfg.MetainfoPath,
		"manifest", s.cfg.ManifestPath,
		"version", release.Tag)

	return &Result{
		NewVersion:  release.Tag,
		ArtifactURL: artifactURL,
		SHA256:      digest,
	}, nil
}

// Sync performs one full pass: Check, then Apply when an update is
// available.
func (s *Syncer) Sync(ctx context.Context) (*Outcome, error) {
	status, err := s.Check(ctx)
	if err != nil {
		return nil, err
	}

	if !status.UpdateAvailable {
		return &Outcome{Updated: false}, nil
	}

	result, err := s.Apply(ctx, status.Release)
	if err != nil {
		return nil, err
	}

	return &Outcome{Updated: true, NewVersion: result.NewVersion}, nil
}

// hashArtifact streams the artifact through SHA-256 without buffering it in
// memory or on disk; only the digest is needed.
func (s *Syncer) hashArtifact(ctx context.Context, artifactURL string) (string, error) {
	body, cancel, err := s.client.DownloadArtifact(ctx, artifactURL)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer func() { _ = body.Close() }() // read-only response body

	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", fmt.Errorf("hashing artifact %s: %w", artifactURL, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// warnTagDivergence logs a warning when the release selected by date does
// not carry the highest tag in the feed, e.g. a backported patch release
// published after a newer version.
func (s *Syncer) warnTagDivergence(releases []gitlab.Release, byDate string) {
	byTag := byDate
	for _, r := range releases {
		if tagLess(byTag, r.Tag) {
			byTag = r.Tag
		}
	}

	if byTag != byDate {
		s.logger.Warn("newest release by date does not carry the highest tag",
			"by_date", byDate, "by_tag", byTag)
	}
}

// tagLess orders two release tags, using semver when both parse as such
// and falling back to plain string comparison otherwise.
func tagLess(a, b string) bool {
	va, vb := "v"+strings.TrimPrefix(a, "v"), "v"+strings.TrimPrefix(b, "v")
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb) < 0
	}
	return a < b
}

// releaseDate returns the date portion of an ISO 8601 timestamp.
func releaseDate(releasedAt string) string {
	date, _, _ := strings.Cut(releasedAt, "T")
	return date
}
