//go:build linux

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".config", appName)
}

func platformDataDefault() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", appName)
}
