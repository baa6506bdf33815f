// Package common provides shared constants, types, and utilities
// used across the Proxy Tray application.
package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// GenerateID generates a unique identifier suitable for configuration IDs.
func GenerateID() string {
	return uuid.NewString()
}

// DefaultDataDir returns the default application-data root
// ($XDG_CONFIG_HOME/proxy-tray or the platform equivalent).
func DefaultDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, herr := os.UserHomeDir()
		if herr != nil {
			return "", WrapError(herr, "failed to get home directory")
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, ConfigDirName), nil
}

// PrepareDataDir creates the application-data root and verifies that it is
// writable. A failure here is an unrecoverable startup fault.
func PrepareDataDir(dir string) error {
	if isSymlink(dir) {
		return fmt.Errorf("security error: data directory %s is a symlink", dir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &IOError{Op: "create data directory", Path: dir, Err: err}
	}

	check, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return &IOError{Op: "write data directory", Path: dir, Err: err}
	}
	name := check.Name()
	check.Close()
	os.Remove(name)
	return nil
}

// RunDir returns the directory holding per-run client files.
func RunDir(dataDir string) string {
	return filepath.Join(dataDir, RunDirName)
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir ensures a directory exists, creating it if necessary.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// WriteFileAtomic writes data to a temporary file in the destination
// directory and renames it over path, so readers never observe a partial
// file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
