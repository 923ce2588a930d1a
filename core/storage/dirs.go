// Package storage resolves where strand keeps configuration and fault data,
// following XDG conventions on Linux.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

const appName = "strand"

// Dirs holds the per-user directories.
type Dirs struct {
	Config string // config.yaml
	Data   string // fault journal
}

// ProjectDirs holds the project-local directories.
type ProjectDirs struct {
	Root   string // .strand/
	Config string // .strand/config.yaml (committed)
	Local  string // .strand/local/ (gitignored)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
)

// ResolveDirs returns platform-appropriate directories. Results are cached
// after the first call.
func ResolveDirs() *Dirs {
	globalDirsOnce.Do(func() {
		globalDirs = &Dirs{
			Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
			Data:   resolveDir("XDG_DATA_HOME", platformDataDefault()),
		}
	})
	return globalDirs
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	return fallback
}

// ResolveProjectDirs returns project-local directories under projectRoot.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+appName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
		Local:  filepath.Join(root, "local"),
	}
}

// ConfigFile returns the user config file path.
func (d *Dirs) ConfigFile() string {
	return filepath.Join(d.Config, "config.yaml")
}

// JournalFile returns the default fault journal path.
func (d *Dirs) JournalFile() string {
	return filepath.Join(d.Data, "faults.db")
}

// EnsureDir creates a directory if it doesn't exist. A zero perm means 0700.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// EnsureAll creates the user directories.
func (d *Dirs) EnsureAll() error {
	for _, dir := range []string{d.Config, d.Data} {
		if err := EnsureDir(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
