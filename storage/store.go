// Package storage persists the controller state.
// This file contains the Store interface and backend selection.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/yllada/proxy-tray/common"
)

// Store is the durable home of the controller state.
type Store interface {
	// Load reads the persisted state. A missing or corrupt store yields
	// DefaultState; Load never fails the caller.
	Load() State
	// Save replaces the persisted state atomically. Failures are
	// *common.IOError values.
	Save(State) error
	// Path returns the location of the store.
	Path() string
	// Close releases the store.
	Close() error
}

// Reloader is implemented by stores that can re-read their content
// strictly. Unlike Load, Reload reports unreadable or empty content as an
// error and leaves the store untouched.
type Reloader interface {
	Reload() (State, error)
}

// Reload re-reads store strictly. Stores without a strict read path fail.
func Reload(store Store) (State, error) {
	r, ok := store.(Reloader)
	if !ok {
		return State{}, &common.IOError{Op: "reload state", Path: store.Path(), Err: errors.ErrUnsupported}
	}
	return r.Reload()
}

// Open opens the store for backend below dataDir.
func Open(backend, dataDir string) (Store, error) {
	switch backend {
	case common.BackendYAML, "":
		return NewYAMLStore(filepath.Join(dataDir, common.StateFileName)), nil
	case common.BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, common.StateDBFileName))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
