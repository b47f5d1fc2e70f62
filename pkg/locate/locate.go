// Package locate resolves the external tool binaries this core
// orchestrates. Lookups are pure: configured overrides first, then
// extra search dirs, then $PATH. Results are cached per Locator and
// can be invalidated when execution fails with a binary-not-found
// class error, since tools can be installed or removed mid-session.
package locate

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/r0man1an/LibreFlash/pkg/errors"
	"github.com/r0man1an/LibreFlash/pkg/logging"
	"github.com/r0man1an/LibreFlash/pkg/types"
)

// Locator resolves tool names to absolute binary paths.
type Locator struct {
	overrides  map[types.Tool]string
	searchDirs []string

	mu    sync.Mutex
	cache map[string]string
}

// Option configures a Locator.
type Option func(*Locator)

// WithOverride pins a tool to an explicit binary path.
func WithOverride(tool types.Tool, path string) Option {
	return func(l *Locator) {
		l.overrides[tool] = path
	}
}

// WithSearchDirs adds directories searched before $PATH.
func WithSearchDirs(dirs ...string) Option {
	return func(l *Locator) {
		l.searchDirs = append(l.searchDirs, dirs...)
	}
}

// New creates a Locator.
func New(opts ...Option) *Locator {
	l := &Locator{
		overrides: make(map[types.Tool]string),
		cache:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate resolves a tool to an absolute path, or returns a
// TOOL_MISSING error.
func (l *Locator) Locate(tool types.Tool) (string, error) {
	return l.LocateBinary(tool.String(), l.overrides[tool])
}

// LocateBinary resolves an arbitrary binary name, with an optional
// explicit override path. This also serves the elevation helper,
// which is not a types.Tool.
func (l *Locator) LocateBinary(name, override string) (string, error) {
	logger := logging.GetLogger("locate")

	if override != "" {
		if isExecutable(override) {
			return override, nil
		}
		return "", errors.Newf(errors.ErrToolMissing, "configured path for %s is not an executable: %s", name, override)
	}

	l.mu.Lock()
	if path, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return path, nil
	}
	l.mu.Unlock()

	for _, dir := range l.searchDirs {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			l.store(name, candidate)
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		logger.Debug().Str("tool", name).Msg("Tool not found")
		return "", errors.Wrapf(err, errors.ErrToolMissing, "%s not found in search dirs or $PATH", name)
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	logger.Debug().Str("tool", name).Str("path", path).Msg("Tool located")
	l.store(name, path)
	return path, nil
}

// Available reports whether the tool can currently be resolved.
func (l *Locator) Available(tool types.Tool) bool {
	_, err := l.Locate(tool)
	return err == nil
}

// Invalidate drops the cached path for a tool. Callers do this after
// an execution failure that looks like a missing binary.
func (l *Locator) Invalidate(tool types.Tool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, tool.String())
}

func (l *Locator) store(name, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[name] = path
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
