// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/reelscout/reelscout/constant"
	"github.com/reelscout/reelscout/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the configuration directory.
const EnvConfigPath = "REELSCOUT_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the primary configuration directory.
// The REELSCOUT_CONFIG_PATH environment variable takes precedence over the platform default.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the directory used for diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Sources resolves the directory holding custom YAML source profiles.
func Sources() string {
	return ensureDir(filepath.Join(Config(), "sources"))
}

// Rendered resolves the directory caching rendering API responses.
func Rendered() string {
	return ensureDir(filepath.Join(Cache(), "rendered"))
}

// Screenshots resolves the directory receiving browser diagnostics.
func Screenshots() string {
	return ensureDir(filepath.Join(Cache(), "screenshots"))
}

// Streams resolves the stream reference cache file.
func Streams() string {
	return filepath.Join(Cache(), "streams.json")
}

// History resolves the run history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Temp resolves a volatile directory for transient artifacts.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}
