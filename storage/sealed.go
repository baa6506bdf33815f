// Package storage persists the controller state.
// This file contains the SealedStore decorator that keeps client secrets
// in the system keyring instead of the state file.
package storage

import (
	"errors"
	"sync"

	"github.com/yllada/proxy-tray/common"
)

// SealedStore keeps selected payload fields out of the state file. Fields
// named in secretKeys are moved into a secret store under "<id>/<field>"
// on save and merged back on load.
type SealedStore struct {
	Store
	secrets    common.SecretStore
	secretKeys []string

	mu     sync.Mutex
	sealed map[string]map[string]bool // config ID -> fields held in the secret store
}

// NewSealedStore wraps inner so that secretKeys are held in secrets.
func NewSealedStore(inner Store, secrets common.SecretStore, secretKeys []string) *SealedStore {
	return &SealedStore{
		Store:      inner,
		secrets:    secrets,
		secretKeys: append([]string(nil), secretKeys...),
		sealed:     make(map[string]map[string]bool),
	}
}

func secretKey(id, field string) string {
	return id + "/" + field
}

// Load reads the inner state and restores sealed fields.
func (s *SealedStore) Load() State {
	return s.unseal(s.Store.Load())
}

// Reload re-reads the inner store strictly and restores sealed fields.
func (s *SealedStore) Reload() (State, error) {
	state, err := Reload(s.Store)
	if err != nil {
		return State{}, err
	}
	return s.unseal(state), nil
}

func (s *SealedStore) unseal(state State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed = make(map[string]map[string]bool)
	for i := range state.Configs {
		cfg := &state.Configs[i]
		for _, field := range s.secretKeys {
			if _, inline := cfg.Payload[field]; inline {
				continue
			}
			value, err := s.secrets.Get(secretKey(cfg.ID, field))
			if err != nil {
				if !errors.Is(err, common.ErrCredentialsNotFound) {
					common.LogWarn("Storage: could not read secret %s for %s: %v", field, cfg.DisplayName(), err)
				}
				continue
			}
			if cfg.Payload == nil {
				cfg.Payload = make(map[string]string)
			}
			cfg.Payload[field] = value
			s.markLocked(cfg.ID, field)
		}
	}
	return state
}

// Save moves sealed fields into the secret store, drops secrets of removed
// configurations and then saves the remainder to the inner store.
func (s *SealedStore) Save(state State) error {
	stripped := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]map[string]bool)
	for i := range stripped.Configs {
		cfg := &stripped.Configs[i]
		for _, field := range s.secretKeys {
			value, ok := cfg.Payload[field]
			if !ok || value == "" {
				continue
			}
			if err := s.secrets.Store(secretKey(cfg.ID, field), value); err != nil {
				return &common.IOError{Op: "store secret", Path: secretKey(cfg.ID, field), Err: err}
			}
			delete(cfg.Payload, field)
			if next[cfg.ID] == nil {
				next[cfg.ID] = make(map[string]bool)
			}
			next[cfg.ID][field] = true
		}
	}

	if err := s.Store.Save(stripped); err != nil {
		return err
	}

	for id, fields := range s.sealed {
		for field := range fields {
			if next[id][field] {
				continue
			}
			if err := s.secrets.Delete(secretKey(id, field)); err != nil {
				common.LogWarn("Storage: could not delete secret %s: %v", secretKey(id, field), err)
			}
		}
	}
	s.sealed = next
	return nil
}

func (s *SealedStore) markLocked(id, field string) {
	if s.sealed[id] == nil {
		s.sealed[id] = make(map[string]bool)
	}
	s.sealed[id][field] = true
}
