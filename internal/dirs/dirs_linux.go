//go:build linux

package dirs

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "vigil")
}

func platformCacheDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "vigil")
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "vigil")
}
