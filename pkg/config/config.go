// Package config loads libreflash configuration with layered
// precedence: built-in defaults, then the user config file from the
// XDG config dir, then LIBREFLASH_* environment variables.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

//go:embed defaults.toml
var defaultConfig []byte

const envPrefix = "LIBREFLASH_"

// Config wraps the merged koanf tree with typed accessors.
type Config struct {
	k *koanf.Koanf
}

// Load builds the configuration from defaults, the user config file
// (if present) and the environment.
func Load() (*Config, error) {
	return loadFrom(userConfigPath())
}

// loadFrom is the test seam: it loads with an explicit user config path.
func loadFrom(userPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load built-in defaults")
	}

	if userPath != "" {
		if _, err := os.Stat(userPath); err == nil {
			if err := k.Load(file.Provider(userPath), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", userPath)
			}
		}
	}

	// Sections are one level deep, so only the first underscore
	// separates section from key; the rest belong to the key itself.
	// LIBREFLASH_EXECUTION_GRACE_PERIOD → execution.grace_period
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	return &Config{k: k}, nil
}

func userConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "libreflash", "config.toml")
}

// ToolPath returns the configured absolute path override for a tool,
// or "" when the tool should be resolved from search dirs and $PATH.
func (c *Config) ToolPath(tool types.Tool) string {
	return c.k.String("tools." + tool.String())
}

// SearchDirs returns extra directories to search for tool binaries
// before falling back to $PATH.
func (c *Config) SearchDirs() []string {
	return c.k.Strings("tools.search_dirs")
}

// ElevationHelper returns the privilege-escalation helper binary.
func (c *Config) ElevationHelper() string {
	return c.k.String("elevation.helper")
}

// GracePeriod returns how long a cancelled child process gets between
// SIGTERM and SIGKILL.
func (c *Config) GracePeriod() time.Duration {
	d, err := time.ParseDuration(c.k.String("execution.grace_period"))
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// DownloadDir returns where fetched artifacts land. Defaults to the
// XDG user download dir when unset.
func (c *Config) DownloadDir() string {
	if dir := c.k.String("download.dir"); dir != "" {
		return dir
	}
	return filepath.Join(xdg.UserDirs.Download, "LibreFlash")
}

// UserAgent returns the HTTP User-Agent for download requests.
func (c *Config) UserAgent() string {
	return c.k.String("download.user_agent")
}

// NightlyAPI returns the LineageOS nightly builds API base URL.
func (c *Config) NightlyAPI() string {
	return c.k.String("download.nightly_api")
}

// MirrorbitsBase returns the mirrorbits full-artifact base URL.
func (c *Config) MirrorbitsBase() string {
	return c.k.String("download.mirrorbits_base")
}

// ArchiveBase returns the community build-archive base URL.
func (c *Config) ArchiveBase() string {
	return c.k.String("download.archive_base")
}

// rawBytesProvider adapts an in-memory byte slice to koanf's Provider
// interface for the embedded defaults.
type rawBytesProvider struct {
	bytes []byte
}

func (r *rawBytesProvider) ReadBytes() ([]byte, error) {
	return r.bytes, nil
}

func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrInternal, "rawBytesProvider does not support Read")
}
