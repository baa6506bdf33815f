// Package tui implements the terminal window of Proxy Tray.
// This file contains the add/edit form.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/proxy-tray/storage"
)

// formField binds a text input to a payload key. The label field has an
// empty key.
type formField struct {
	title  string
	key    string
	input  textinput.Model
	secret bool
}

// ConfigForm is the add/edit configuration overlay.
type ConfigForm struct {
	editIndex int // -1 when adding
	id        string
	extra     map[string]string // payload keys without a field, kept on edit

	fields     []formField
	focusIndex int
	width      int
}

var formLayout = []struct {
	title       string
	key         string
	placeholder string
	secret      bool
}{
	{"Label", "", "Display name", false},
	{"Server", "server", "proxy.example.net", false},
	{"Port", "server_port", "8388", false},
	{"Password", "password", "", true},
	{"Method", "method", "aes-256-gcm", false},
	{"Local port", "local_port", "1080", false},
}

// NewConfigForm creates an empty form for a new configuration.
func NewConfigForm(width int) *ConfigForm {
	f := &ConfigForm{editIndex: -1, width: width, extra: map[string]string{}}
	inputWidth := width - 24
	if inputWidth < 20 {
		inputWidth = 20
	}
	for _, l := range formLayout {
		ti := textinput.New()
		ti.Placeholder = l.placeholder
		ti.CharLimit = 256
		ti.Width = inputWidth
		if l.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.fields = append(f.fields, formField{title: l.title, key: l.key, input: ti, secret: l.secret})
	}
	f.fields[0].input.Focus()
	return f
}

// PreFill loads cfg for editing the entry at index.
func (f *ConfigForm) PreFill(index int, cfg storage.ClientConfig) {
	f.editIndex = index
	f.id = cfg.ID
	known := make(map[string]bool)
	for i := range f.fields {
		if f.fields[i].key == "" {
			f.fields[i].input.SetValue(cfg.Label)
			continue
		}
		known[f.fields[i].key] = true
		f.fields[i].input.SetValue(cfg.Payload[f.fields[i].key])
	}
	for k, v := range cfg.Payload {
		if !known[k] {
			f.extra[k] = v
		}
	}
}

// Editing reports whether the form edits an existing entry.
func (f *ConfigForm) Editing() bool {
	return f.editIndex >= 0
}

// FocusNext moves to the next field.
func (f *ConfigForm) FocusNext() {
	f.fields[f.focusIndex].input.Blur()
	f.focusIndex = (f.focusIndex + 1) % len(f.fields)
	f.fields[f.focusIndex].input.Focus()
}

// FocusPrev moves to the previous field.
func (f *ConfigForm) FocusPrev() {
	f.fields[f.focusIndex].input.Blur()
	f.focusIndex--
	if f.focusIndex < 0 {
		f.focusIndex = len(f.fields) - 1
	}
	f.fields[f.focusIndex].input.Focus()
}

// Focused returns the focused input for update forwarding.
func (f *ConfigForm) Focused() *textinput.Model {
	return &f.fields[f.focusIndex].input
}

// SetValue sets the field titled title. Used by tests and prefill.
func (f *ConfigForm) SetValue(title, value string) {
	for i := range f.fields {
		if f.fields[i].title == title {
			f.fields[i].input.SetValue(value)
		}
	}
}

// Config builds the configuration from the form values.
func (f *ConfigForm) Config() storage.ClientConfig {
	cfg := storage.ClientConfig{ID: f.id, Payload: map[string]string{}}
	for k, v := range f.extra {
		cfg.Payload[k] = v
	}
	for _, field := range f.fields {
		value := strings.TrimSpace(field.input.Value())
		if field.key == "" {
			cfg.Label = value
			continue
		}
		if value == "" {
			delete(cfg.Payload, field.key)
			continue
		}
		cfg.Payload[field.key] = value
	}
	return cfg
}

// View renders the form.
func (f *ConfigForm) View() string {
	title := "Add configuration"
	if f.Editing() {
		title = "Edit configuration"
	}

	parts := make([]string, 0, len(f.fields)+3)
	parts = append(parts, formTitleStyle.Render(title))
	for i, field := range f.fields {
		label := labelStyle.Render(field.title)
		if i == f.focusIndex {
			label = focusedLabelStyle.Render(field.title)
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, label, field.input.View()))
	}
	parts = append(parts, "", dimStyle.Render("Ctrl+s save  |  Tab next field  |  Esc cancel"))

	return formStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
