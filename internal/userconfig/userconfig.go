// Package userconfig locates the per-user config directory
// (~/.config/pdfsandwich) that config.Manager searches for a defaults
// file, the same directory-handle shape as the teacher's internal/home.Dir,
// narrowed to the one file this module actually needs instead of a full
// book-library home tree.
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name of the per-user config directory.
	DefaultDirName = "pdfsandwich"

	// ConfigFileName is the default config file name within it.
	ConfigFileName = "pdfsandwich.yaml"
)

// Dir represents the user's pdfsandwich config directory.
type Dir struct {
	path string
}

// New builds a Dir at path, or at the XDG-style default
// ($HOME/.config/pdfsandwich) if path is empty.
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, ".config", DefaultDirName)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory's root path.
func (d *Dir) Path() string { return d.path }

// ConfigPath returns the path to the default config file within it.
func (d *Dir) ConfigPath() string { return filepath.Join(d.path, ConfigFileName) }

// EnsureExists creates the directory if it doesn't already exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// Exists reports whether the directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists reports whether the default config file exists.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
