// Package storage persists the controller state: the ordered list of client
// configurations and the enabled, selected, and auto-launch flags.
package storage

import (
	"fmt"
	"strings"

	"github.com/yllada/proxy-tray/common"
)

// ClientConfig is one proxy endpoint definition. The payload is opaque to
// the core; configurations are addressed by their position in State.Configs.
type ClientConfig struct {
	// ID is a stable identifier used as the secret-store key prefix.
	ID string `json:"id" yaml:"id"`
	// Label is the display label.
	Label string `json:"label" yaml:"label"`
	// Payload holds server address, port, credentials and client options.
	Payload map[string]string `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Validate checks the structural shape of the configuration.
func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.Label) == "" && len(c.Payload) == 0 {
		return &common.ValidationError{Field: "config", Value: c.ID, Reason: "label and payload are both empty"}
	}
	for k := range c.Payload {
		if strings.TrimSpace(k) == "" {
			return &common.ValidationError{Field: "payload key", Value: fmt.Sprintf("%q", k), Reason: "blank key"}
		}
	}
	return nil
}

// DisplayName returns the label, falling back to the server address.
func (c ClientConfig) DisplayName() string {
	if strings.TrimSpace(c.Label) != "" {
		return c.Label
	}
	if server := c.Payload["server"]; server != "" {
		if port := c.Payload["server_port"]; port != "" {
			return server + ":" + port
		}
		return server
	}
	return c.ID
}

// Clone returns a deep copy.
func (c ClientConfig) Clone() ClientConfig {
	out := c
	if c.Payload != nil {
		out.Payload = make(map[string]string, len(c.Payload))
		for k, v := range c.Payload {
			out.Payload[k] = v
		}
	}
	return out
}

// Equal reports whether two configurations are identical. A nil and an
// empty payload are equal.
func (c ClientConfig) Equal(o ClientConfig) bool {
	if c.ID != o.ID || c.Label != o.Label || len(c.Payload) != len(o.Payload) {
		return false
	}
	for k, v := range c.Payload {
		if ov, ok := o.Payload[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// State is the persisted controller state.
type State struct {
	Configs    []ClientConfig `json:"configs" yaml:"configs"`
	Selected   int            `json:"selected" yaml:"selected"`
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	AutoLaunch bool           `json:"auto_launch" yaml:"auto_launch"`
}

// DefaultState returns the state used when nothing is persisted.
func DefaultState() State {
	return State{
		Configs:  []ClientConfig{},
		Selected: common.NoSelection,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Configs = make([]ClientConfig, len(s.Configs))
	for i, c := range s.Configs {
		out.Configs[i] = c.Clone()
	}
	return out
}

// Equal reports whether two states are identical.
func (s State) Equal(o State) bool {
	if s.Selected != o.Selected || s.Enabled != o.Enabled || s.AutoLaunch != o.AutoLaunch {
		return false
	}
	if len(s.Configs) != len(o.Configs) {
		return false
	}
	for i := range s.Configs {
		if !s.Configs[i].Equal(o.Configs[i]) {
			return false
		}
	}
	return true
}

// ConfigAt returns the configuration at index i, or nil for NoSelection
// and out-of-range indexes.
func (s State) ConfigAt(i int) *ClientConfig {
	if i < 0 || i >= len(s.Configs) {
		return nil
	}
	c := s.Configs[i].Clone()
	return &c
}

// Selection returns the selected configuration, or nil.
func (s State) Selection() *ClientConfig {
	return s.ConfigAt(s.Selected)
}

// ValidIndex reports whether i is NoSelection or a valid index.
func (s State) ValidIndex(i int) bool {
	return i >= common.NoSelection && i < len(s.Configs)
}

// Normalize clamps an invalid selection to NoSelection, replaces a nil
// config list with an empty one and assigns missing IDs. It reports
// whether anything changed.
func (s *State) Normalize() bool {
	changed := false
	if s.Configs == nil {
		s.Configs = []ClientConfig{}
	}
	if !s.ValidIndex(s.Selected) {
		s.Selected = common.NoSelection
		changed = true
	}
	if AssignIDs(s.Configs) {
		changed = true
	}
	return changed
}

// AssignIDs gives every configuration without an ID a fresh one. IDs that
// repeat are replaced as well, so each ID maps to one secret-store entry.
func AssignIDs(configs []ClientConfig) bool {
	changed := false
	seen := make(map[string]bool, len(configs))
	for i := range configs {
		if configs[i].ID == "" || seen[configs[i].ID] {
			configs[i].ID = common.GenerateID()
			changed = true
		}
		seen[configs[i].ID] = true
	}
	return changed
}
