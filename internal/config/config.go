// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with YAML as
// the file format.
//
// Configuration is loaded from ~/.config/aagl-sync/config.yml (or the XDG
// equivalent on Linux, ~/Library/Application Support/aagl-sync/config.yml
// on macOS, %APPDATA%\aagl-sync\config.yml on Windows), with AAGL_SYNC_*
// environment variables taking precedence over the file. Every key has a
// default matching the upstream an-anime-game-launcher project, so the tool
// runs with no configuration at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the config directory.
	AppName = "aagl-sync"
	// configFileName is the name of the config file (without extension).
	configFileName = "config"
	// configFileExt is the config file extension.
	configFileExt = "yml"
)

// Config holds all settings for one synchronization run.
type Config struct {
	// ReleasesURL is the GitLab release feed endpoint.
	ReleasesURL string `mapstructure:"releases_url"`
	// ArtifactBaseURL is prepended to the /uploads/... path found in a
	// release description to form the artifact download URL.
	ArtifactBaseURL string `mapstructure:"artifact_base_url"`
	// ArtifactName is the fixed AppImage filename matched inside release
	// descriptions.
	ArtifactName string `mapstructure:"artifact_name"`
	// ModuleName identifies the manifest module whose source is rewritten.
	ModuleName string `mapstructure:"module_name"`
	// MetainfoPath is the AppStream metainfo XML file to update.
	MetainfoPath string `mapstructure:"metainfo_path"`
	// ManifestPath is the flatpak-builder YAML manifest to update.
	ManifestPath string `mapstructure:"manifest_path"`
	// ListTimeout bounds the release feed fetch.
	ListTimeout time.Duration `mapstructure:"list_timeout"`
	// DownloadTimeout bounds the artifact download.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// DefaultConfig returns the configuration matching the upstream project.
func DefaultConfig() Config {
	return Config{
		ReleasesURL:     "https://gitlab.com/an-anime-team/an-anime-game-launcher/-/releases.json",
		ArtifactBaseURL: "https://gitlab.com/KRypt0n_/an-anime-game-launcher",
		ArtifactName:    "An_Anime_Game_Launcher.AppImage",
		ModuleName:      "an-anime-game-launcher",
		MetainfoPath:    "com.gitlab.KRypt0n_.an-anime-game-launcher.metainfo.xml",
		ManifestPath:    "com.gitlab.KRypt0n_.an-anime-game-launcher.yml",
		ListTimeout:     30 * time.Second,
		DownloadTimeout: 15 * time.Minute,
	}
}

// ConfigDir returns the aagl-sync configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads configuration from defaults, the config file (if present), and
// AAGL_SYNC_* environment variables, in increasing order of precedence.
// configFilePath, when non-empty, selects an explicit config file that must
// exist; otherwise a missing file is not an error.
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("releases_url", defaults.ReleasesURL)
	v.SetDefault("artifact_base_url", defaults.ArtifactBaseURL)
	v.SetDefault("artifact_name", defaults.ArtifactName)
	v.SetDefault("module_name", defaults.ModuleName)
	v.SetDefault("metainfo_path", defaults.MetainfoPath)
	v.SetDefault("manifest_path", defaults.ManifestPath)
	v.SetDefault("list_timeout", defaults.ListTimeout)
	v.SetDefault("download_timeout", defaults.DownloadTimeout)

	v.SetEnvPrefix("AAGL_SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFilePath, err)
		}
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileExt)
		v.AddConfigPath(dir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			// No config file is fine; defaults and env cover everything.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
