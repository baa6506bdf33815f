// Package storage persists the controller state.
// This file contains the YAML file store with atomic writes.
package storage

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/proxy-tray/common"
)

// YAMLStore keeps the state in a single YAML file, replaced atomically on
// every save.
type YAMLStore struct {
	path string

	mu       sync.Mutex
	lastSum  [sha256.Size]byte
	hasWrite bool
}

// NewYAMLStore creates a store for the file at path. The file is created on
// the first Save.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the state file path.
func (s *YAMLStore) Path() string {
	return s.path
}

// Load reads the state file. Corrupt files are moved aside so the next
// save does not destroy them.
func (s *YAMLStore) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			common.LogWarn("Storage: %v", &common.IOError{Op: "read state", Path: s.path, Err: err})
		}
		return DefaultState()
	}

	state, err := decodeYAML(data)
	if err != nil {
		common.LogWarn("Storage: %v", &common.IOError{Op: "parse state", Path: s.path, Err: err})
		s.quarantine()
		return DefaultState()
	}

	s.mu.Lock()
	s.lastSum = sha256.Sum256(data)
	s.hasWrite = true
	s.mu.Unlock()

	return state
}

var errEmptyState = errors.New("state file is empty")

// Reload reads the state file strictly. A missing, empty or unparsable file
// is an error and is left where it is.
func (s *YAMLStore) Reload() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{}, &common.IOError{Op: "read state", Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return State{}, &common.IOError{Op: "parse state", Path: s.path, Err: errEmptyState}
	}
	state, err := decodeYAML(data)
	if err != nil {
		return State{}, &common.IOError{Op: "parse state", Path: s.path, Err: err}
	}

	s.mu.Lock()
	s.lastSum = sha256.Sum256(data)
	s.hasWrite = true
	s.mu.Unlock()

	return state, nil
}

func decodeYAML(data []byte) (State, error) {
	state := DefaultState()
	if len(data) == 0 {
		return state, nil
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return DefaultState(), err
	}
	if state.Normalize() {
		common.LogWarn("Storage: persisted state was inconsistent and has been normalized")
	}
	return state, nil
}

func (s *YAMLStore) quarantine() {
	aside := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(s.path, aside); err != nil {
		common.LogWarn("Storage: could not move corrupt state aside: %v", err)
		return
	}
	common.LogWarn("Storage: corrupt state moved to %s", aside)
}

// Save writes the state atomically.
func (s *YAMLStore) Save(state State) error {
	if state.Configs == nil {
		state.Configs = []ClientConfig{}
	}

	data, err := yaml.Marshal(&state)
	if err != nil {
		return &common.IOError{Op: "encode state", Path: s.path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := common.WriteFileAtomic(s.path, data, 0600); err != nil {
		return &common.IOError{Op: "write state", Path: s.path, Err: err}
	}
	s.lastSum = sha256.Sum256(data)
	s.hasWrite = true
	return nil
}

// ownContent reports whether data is exactly what this store last read or
// wrote.
func (s *YAMLStore) ownContent(data []byte) bool {
	sum := sha256.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasWrite && sum == s.lastSum
}

// Close is a no-op for file stores.
func (s *YAMLStore) Close() error {
	return nil
}
