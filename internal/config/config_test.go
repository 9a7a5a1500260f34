// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	// Point the config dir somewhere empty so a developer's real config
	// cannot leak into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	defaults := DefaultConfig()
	if cfg.ReleasesURL != defaults.ReleasesURL {
		t.Errorf("releases_url = %q, want default %q", cfg.ReleasesURL, defaults.ReleasesURL)
	}
	if cfg.ModuleName != "an-anime-game-launcher" {
		t.Errorf("module_name = %q", cfg.ModuleName)
	}
	if !strings.HasSuffix(cfg.MetainfoPath, ".metainfo.xml") {
		t.Errorf("metainfo_path = %q", cfg.MetainfoPath)
	}
	if cfg.ListTimeout != 30*time.Second {
		t.Errorf("list_timeout = %v", cfg.ListTimeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("AAGL_SYNC_RELEASES_URL", "https://example.com/feed.json")
	t.Setenv("AAGL_SYNC_LIST_TIMEOUT", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ReleasesURL != "https://example.com/feed.json" {
		t.Errorf("releases_url = %q", cfg.ReleasesURL)
	}
	if cfg.ListTimeout != 5*time.Second {
		t.Errorf("list_timeout = %v", cfg.ListTimeout)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.yml")
	content := "metainfo_path: /srv/flatpak/launcher.metainfo.xml\nmanifest_path: /srv/flatpak/launcher.yml\ndownload_timeout: 1m\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MetainfoPath != "/srv/flatpak/launcher.metainfo.xml" {
		t.Errorf("metainfo_path = %q", cfg.MetainfoPath)
	}
	if cfg.ManifestPath != "/srv/flatpak/launcher.yml" {
		t.Errorf("manifest_path = %q", cfg.ManifestPath)
	}
	if cfg.DownloadTimeout != time.Minute {
		t.Errorf("download_timeout = %v", cfg.DownloadTimeout)
	}
	// Unset keys still come from defaults.
	if cfg.ReleasesURL != DefaultConfig().ReleasesURL {
		t.Errorf("releases_url = %q", cfg.ReleasesURL)
	}
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected an error for an explicitly named missing file")
	}
}

func TestConfigDir_UsesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(dir, AppName)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
