// Package config resolves environment-driven settings for maturityd.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Config is the explicit set of recognized options. Everything comes from the
// environment; there is no config file.
type Config struct {
	// DatabaseURL selects a PostgreSQL database when set to a postgres:// URL.
	// Empty means the local single-file SQLite database under DataDir.
	DatabaseURL string
	// DataDir is the directory holding the SQLite database file.
	DataDir string
	// GitHubToken authenticates upstream fetches. Required for refresh, not for reads.
	GitHubToken string
	// APIKey protects the read API. Empty disables authentication.
	APIKey string
	// Owners is the default owner list used when refresh is invoked without --owner.
	Owners []string
}

// Load reads the configuration from the environment.
func Load() Config {
	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DataDir:     GetDataDir(),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		APIKey:      os.Getenv("API_KEY"),
		Owners:      splitOwners(os.Getenv("MATURITYD_OWNERS")),
	}
}

// GetDataDir resolves the base directory for local storage. It checks
// MATURITYD_DATA_DIR first, then XDG paths, and finally falls back to the
// user's home directory.
func GetDataDir() string {
	if explicit := os.Getenv("MATURITYD_DATA_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "maturityd")
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "maturityd")
}

// GetDBPath returns the absolute path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "maturity.db")
}

func splitOwners(raw string) []string {
	if raw == "" {
		return nil
	}
	var owners []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			owners = append(owners, trimmed)
		}
	}
	return owners
}
