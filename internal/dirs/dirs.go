// Package dirs provides platform-native directory resolution with XDG
// support, trimmed from core/storage/dirs.go in the reference repo this
// module started from. The ProjectDirs concept has no analogue here: a
// session has no notion of a project root, just registered glob patterns.
package dirs

import (
	"os"
	"path/filepath"
	"sync"
)

// Dirs holds the platform-appropriate directories this module reads and
// writes under.
type Dirs struct {
	Config string // user configuration (session-defaults.yaml)
	Cache  string // regenerable cache (none yet written here)
	State  string // runtime state (logs)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
	globalDirsErr  error
)

// Resolve returns platform-appropriate directories. Results are cached
// after the first call.
func Resolve() (*Dirs, error) {
	globalDirsOnce.Do(func() {
		globalDirs = &Dirs{
			Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
			Cache:  resolveDir("XDG_CACHE_HOME", platformCacheDefault()),
			State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
		}
	})
	return globalDirs, globalDirsErr
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, "vigil")
	}
	return fallback
}

// ConfigDir returns the config subdirectory path.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// EnsureDir creates a directory with the given permissions if it doesn't
// already exist, defaulting to 0755.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0755
	}
	return os.MkdirAll(path, perm)
}
