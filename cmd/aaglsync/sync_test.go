// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/an-anime-team/flatpak-builds/internal/config"
	"github.com/an-anime-team/flatpak-builds/internal/gitlab"
	"github.com/an-anime-team/flatpak-builds/internal/manifest"
	"github.com/an-anime-team/flatpak-builds/internal/metainfo"
	"github.com/an-anime-team/flatpak-builds/internal/relnotes"
	"github.com/an-anime-team/flatpak-builds/internal/syncer"
)

const (
	testMetainfo = `<?xml version='1.0' encoding='utf-8'?>
<component>
  <releases>
    <release version="3.1.0" date="2022-06-05"/>
  </releases>
</component>
`

	testManifest = `modules:
  - name: an-anime-game-launcher
    sources:
      - type: file
        url: https://example.com/old.AppImage
        sha256: 0000000000000000000000000000000000000000000000000000000000000000
`
)

type feedEntry struct {
	Tag         string `json:"tag"`
	ReleasedAt  string `json:"released_at"`
	Description string `json:"description"`
}

// newTestSyncer stands up local files and a fake GitLab and returns a wired
// Syncer plus its config.
func newTestSyncer(t *testing.T, feed []feedEntry, artifact []byte) (*syncer.Syncer, config.Config) {
	t.Helper()

	dir := t.TempDir()
	metainfoPath := filepath.Join(dir, "launcher.metainfo.xml")
	manifestPath := filepath.Join(dir, "launcher.yml")

	if err := os.WriteFile(metainfoPath, []byte(testMetainfo), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(manifestPath, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/-/releases.json", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(feed); err != nil {
			t.Errorf("encoding feed: %v", err)
		}
	})
	mux.HandleFunc("/uploads/", func(w http.ResponseWriter, r *http.Request) {
		w.Write(artifact)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.ReleasesURL = srv.URL + "/-/releases.json"
	cfg.ArtifactBaseURL = srv.URL
	cfg.MetainfoPath = metainfoPath
	cfg.ManifestPath = manifestPath
	cfg.ListTimeout = 5 * time.Second
	cfg.DownloadTimeout = 5 * time.Second

	client := gitlab.NewClient(cfg.ReleasesURL, gitlab.WithTimeouts(cfg.ListTimeout, cfg.DownloadTimeout))

	return syncer.New(cfg, client, nil), cfg
}

func TestRunSync_UpToDate(t *testing.T) {
	t.Parallel()

	feed := []feedEntry{{Tag: "3.1.0", ReleasedAt: "2022-06-05T09:30:00Z"}}
	s, cfg := newTestSyncer(t, feed, nil)

	var stdout bytes.Buffer
	p := syncParams{
		stdout:       &stdout,
		stderr:       &stdout,
		sync:         s,
		metainfoPath: cfg.MetainfoPath,
		manifestPath: cfg.ManifestPath,
		yes:          true,
	}

	if err := runSync(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Current flatpak release: 3.1.0") {
		t.Errorf("missing current version line:\n%s", out)
	}
	if !strings.Contains(out, "already up to date") {
		t.Errorf("missing up-to-date status:\n%s", out)
	}
}

func TestRunSync_AppliesUpdate(t *testing.T) {
	t.Parallel()

	description := "## What's changed?\n\n- Fixed A\n\n[file](/uploads/4bc2a1f0/An_Anime_Game_Launcher.AppImage)"
	feed := []feedEntry{{Tag: "3.2.0", ReleasedAt: "2022-06-10T12:00:00Z", Description: description}}
	s, cfg := newTestSyncer(t, feed, []byte("artifact"))

	var stdout bytes.Buffer
	p := syncParams{
		stdout:       &stdout,
		stderr:       &stdout,
		sync:         s,
		metainfoPath: cfg.MetainfoPath,
		manifestPath: cfg.ManifestPath,
		yes:          true,
	}

	if err := runSync(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "New version available on GitLab!") {
		t.Errorf("missing availability line:\n%s", out)
	}
	if !strings.Contains(out, "Download URL:") || !strings.Contains(out, "SHA256:") {
		t.Errorf("missing artifact report:\n%s", out)
	}
	if !strings.Contains(out, "Successfully updated to 3.2.0") {
		t.Errorf("missing success line:\n%s", out)
	}
	if !strings.Contains(out, "git checkout") {
		t.Errorf("missing revert hint:\n%s", out)
	}

	doc, err := metainfo.Load(cfg.MetainfoPath)
	if err != nil {
		t.Fatalf("reloading metainfo: %v", err)
	}
	if releases := doc.Releases(); releases[0].Version != "3.2.0" {
		t.Errorf("metainfo not updated: %+v", releases[0])
	}
}

func TestRunSync_FormatDrift(t *testing.T) {
	t.Parallel()

	feed := []feedEntry{{Tag: "3.2.0", ReleasedAt: "2022-06-10T12:00:00Z", Description: "reworked notes"}}
	s, cfg := newTestSyncer(t, feed, nil)

	p := syncParams{
		stdout:       &bytes.Buffer{},
		stderr:       &bytes.Buffer{},
		sync:         s,
		metainfoPath: cfg.MetainfoPath,
		manifestPath: cfg.ManifestPath,
		yes:          true,
	}

	err := runSync(context.Background(), p)
	if !errors.Is(err, relnotes.ErrFormatDrift) {
		t.Fatalf("expected ErrFormatDrift, got %v", err)
	}
}

func TestClassifySyncExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"format drift", &relnotes.FormatDriftError{Expected: "marker"}, 1},
		{"metainfo parse", &metainfo.ParseError{Cause: errors.New("bad xml")}, 1},
		{"manifest parse", &manifest.ParseError{Cause: errors.New("bad yaml")}, 1},
		{"fetch", &gitlab.FetchError{URL: "https://x", StatusCode: 503}, 2},
		{"unknown", errors.New("anything else"), 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := classifySyncExitCode(tc.err); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFormatSyncError_FormatDrift(t *testing.T) {
	t.Parallel()

	err := &relnotes.FormatDriftError{Expected: `marker "## What's changed?"`}

	got := formatSyncError(err, "launcher.metainfo.xml", "launcher.yml")
	if !strings.Contains(got, "What's changed?") {
		t.Errorf("message does not name the searched marker:\n%s", got)
	}
	if !strings.Contains(got, "upstream description format") {
		t.Errorf("message lacks drift guidance:\n%s", got)
	}
	if !strings.Contains(got, "git checkout launcher.metainfo.xml launcher.yml") {
		t.Errorf("message lacks the revert hint:\n%s", got)
	}
}

func TestFormatSyncError_Fetch(t *testing.T) {
	t.Parallel()

	err := &gitlab.FetchError{URL: "https://gitlab.example/feed.json", StatusCode: 503}

	got := formatSyncError(err, "a.xml", "b.yml")
	if !strings.Contains(got, "https://gitlab.example/feed.json") {
		t.Errorf("message does not name the attempted URL:\n%s", got)
	}
	if !strings.Contains(got, "network") {
		t.Errorf("message lacks network guidance:\n%s", got)
	}
}
