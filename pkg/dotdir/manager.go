// Package dotdir resolves the .memhandler/ directory that holds config.toml
// and the default SQLite databases.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the memhandler state directory.
	DirName = ".memhandler"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .memhandler/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.memhandler/ dir
//  3. Home ~/.memhandler/ dir
//
// When none of these resolve, an empty string is returned and callers fall
// back to in-process defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating memhandler directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if isDir(filepath.Join(cwd, DirName)) {
		return filepath.Join(cwd, DirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil //nolint:nilerr // no home dir means no home config
	}
	if isDir(filepath.Join(home, DirName)) {
		return filepath.Join(home, DirName), nil
	}

	return "", nil
}

// Path joins name onto the resolved directory. It returns an empty string
// when no directory resolves.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
