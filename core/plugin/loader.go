package plugin

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// libExt returns the shared-library extension for the running OS.
func libExt() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// IsLibrary reports whether a path looks like a loadable plugin file
// on this OS.
func IsLibrary(path string) bool {
	return strings.EqualFold(filepath.Ext(path), libExt())
}

// Loader discovers and loads plugin libraries from a set of
// directories: a project-local plugins directory, a per-user
// directory, and any directories registered with AddDir.
type Loader struct {
	dirs   []string
	logger zerolog.Logger
}

// NewLoader creates a loader over the default plugin directories. The
// per-user directory is skipped when the home directory cannot be
// determined.
func NewLoader(logger zerolog.Logger) *Loader {
	dirs := []string{"plugins"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".patchbay", "plugins"))
	} else {
		logger.Warn().Err(err).Msg("no home directory, skipping user plugin dir")
	}
	return &Loader{dirs: dirs, logger: logger}
}

// AddDir registers an extra directory to scan.
func (l *Loader) AddDir(dir string) {
	l.dirs = append(l.dirs, dir)
}

// Dirs returns the directories the loader scans, in scan order.
func (l *Loader) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Discover scans every registered directory and returns the paths of
// plugin library files found. A missing or unreadable directory is
// logged and skipped; it never aborts the scan.
func (l *Loader) Discover() []string {
	var found []string
	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				l.logger.Warn().Err(err).Str("dir", dir).Msg("cannot scan plugin directory")
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !IsLibrary(e.Name()) {
				continue
			}
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}
	return found
}

// Load runs the full load sequence against one library file.
func (l *Loader) Load(path string) (*Library, error) {
	lib, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.logger.Info().
		Str("path", path).
		Str("name", lib.Manifest().Name).
		Str("version", lib.Manifest().Version).
		Msg("plugin loaded")
	return lib, nil
}
