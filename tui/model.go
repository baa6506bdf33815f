// Package tui implements the terminal window of Proxy Tray.
// This file contains the Bubble Tea model for the configuration list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/controller"
	"github.com/yllada/proxy-tray/storage"
)

// intentTimeout bounds how long a key press waits for the controller.
const intentTimeout = 30 * time.Second

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Model is the bubbletea model of the configuration window.
type Model struct {
	ctrl   Controller
	status controller.Status

	cursor        int
	form          *ConfigForm
	confirmDelete bool
	err           error
	notice        string

	width  int
	height int
}

// NewModel creates the model from the current controller status.
func NewModel(ctrl Controller) Model {
	m := Model{ctrl: ctrl, status: ctrl.Status(), width: 80, height: 24}
	if sel := m.status.State.Selected; sel >= 0 {
		m.cursor = sel
	}
	m.clampCursor()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		m.status = msg.Status
		m.clampCursor()
		return m, nil

	case ConfigsMsg:
		m.status.State.Configs = msg.Configs
		m.status.State.Selected = msg.Selected
		m.clampCursor()
		return m, nil

	case ExecErrorMsg:
		m.err = msg.Err
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case intentDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, common.ErrShuttingDown) {
			m.err = fmt.Errorf("%s: %w", msg.op, msg.err)
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("copy: %w", msg.err)
		} else {
			m.notice = "Copied " + msg.text
		}
		return m, nil

	case ExitMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.form != nil {
		return m.updateFormInput(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		return m.handleFormKey(msg)
	}

	if m.confirmDelete {
		switch {
		case key.Matches(msg, confirmKeys.Yes):
			m.confirmDelete = false
			return m, m.deleteCmd(m.cursor)
		case key.Matches(msg, confirmKeys.No):
			m.confirmDelete = false
		}
		return m, nil
	}

	// Any key dismisses the error bar
	m.err = nil
	m.notice = ""
	configs := m.status.State.Configs

	switch {
	case key.Matches(msg, listKeys.Quit):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
			defer cancel()
			return intentDoneMsg{op: "quit", err: ctrl.RequestExit(ctx)}
		}

	case key.Matches(msg, listKeys.Hide):
		return m, tea.Quit

	case key.Matches(msg, listKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, listKeys.Down):
		if m.cursor < len(configs)-1 {
			m.cursor++
		}

	case key.Matches(msg, listKeys.Select):
		if len(configs) > 0 {
			index := m.cursor
			return m, m.intentCmd("select", func(ctx context.Context, c Controller) error {
				return c.SetSelected(ctx, index)
			})
		}

	case key.Matches(msg, listKeys.Clear):
		return m, m.intentCmd("unselect", func(ctx context.Context, c Controller) error {
			return c.SetSelected(ctx, common.NoSelection)
		})

	case key.Matches(msg, listKeys.Toggle):
		enabled := !m.status.State.Enabled
		return m, m.intentCmd("enable", func(ctx context.Context, c Controller) error {
			return c.SetEnabled(ctx, enabled)
		})

	case key.Matches(msg, listKeys.Add):
		m.form = NewConfigForm(m.width)

	case key.Matches(msg, listKeys.Edit):
		if cfg := m.status.State.ConfigAt(m.cursor); cfg != nil {
			m.form = NewConfigForm(m.width)
			m.form.PreFill(m.cursor, *cfg)
		}

	case key.Matches(msg, listKeys.Delete):
		if len(configs) > 0 {
			m.confirmDelete = true
		}

	case key.Matches(msg, listKeys.Copy):
		if cfg := m.status.State.ConfigAt(m.cursor); cfg != nil {
			if addr := serverAddress(*cfg); addr != "" {
				return m, func() tea.Msg {
					return copiedMsg{text: addr, err: writeClipboard(addr)}
				}
			}
		}

	case key.Matches(msg, listKeys.MoveUp):
		if m.cursor > 0 {
			cmd := m.moveCmd(m.cursor, m.cursor-1)
			m.cursor--
			return m, cmd
		}

	case key.Matches(msg, listKeys.MoveDown):
		if m.cursor < len(configs)-1 {
			cmd := m.moveCmd(m.cursor, m.cursor+1)
			m.cursor++
			return m, cmd
		}
	}

	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, formKeys.Cancel):
		m.form = nil
		m.err = nil
		return m, nil

	case key.Matches(msg, formKeys.Save):
		cfg := m.form.Config()
		if err := cfg.Validate(); err != nil {
			m.err = err
			return m, nil
		}
		cmd := m.saveCmd(m.form.editIndex, cfg)
		if !m.form.Editing() {
			m.cursor = len(m.status.State.Configs)
		}
		m.form = nil
		m.err = nil
		return m, cmd

	case key.Matches(msg, formKeys.Next):
		m.form.FocusNext()
		return m, nil

	case key.Matches(msg, formKeys.Prev):
		m.form.FocusPrev()
		return m, nil
	}

	return m.updateFormInput(msg)
}

func (m Model) updateFormInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	input := m.form.Focused()
	updated, cmd := input.Update(msg)
	*input = updated
	return m, cmd
}

func (m *Model) clampCursor() {
	n := len(m.status.State.Configs)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// intentCmd runs fn against the controller off the UI goroutine.
func (m Model) intentCmd(op string, fn func(ctx context.Context, c Controller) error) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		return intentDoneMsg{op: op, err: fn(ctx, ctrl)}
	}
}

// saveCmd appends cfg, or replaces the entry at index when index >= 0.
func (m Model) saveCmd(index int, cfg storage.ClientConfig) tea.Cmd {
	configs := cloneConfigs(m.status.State.Configs)
	if index >= 0 && index < len(configs) {
		configs[index] = cfg
	} else {
		configs = append(configs, cfg)
	}
	return m.intentCmd("save", func(ctx context.Context, c Controller) error {
		return c.ReplaceConfigs(ctx, configs)
	})
}

func (m Model) deleteCmd(index int) tea.Cmd {
	old := m.status.State.Configs
	if index < 0 || index >= len(old) {
		return nil
	}
	configs := append(cloneConfigs(old[:index]), cloneConfigs(old[index+1:])...)

	want := m.status.State.Selected
	switch {
	case want == index:
		want = common.NoSelection
	case want > index:
		want--
	}
	return m.reorderCmd("delete", configs, want)
}

func (m Model) moveCmd(from, to int) tea.Cmd {
	configs := cloneConfigs(m.status.State.Configs)
	configs[from], configs[to] = configs[to], configs[from]

	want := m.status.State.Selected
	switch want {
	case from:
		want = to
	case to:
		want = from
	}
	return m.reorderCmd("move", configs, want)
}

// reorderCmd submits configs together with selected, the new index of the
// entry selected before, or NoSelection when that entry was removed.
func (m Model) reorderCmd(op string, configs []storage.ClientConfig, selected int) tea.Cmd {
	return m.intentCmd(op, func(ctx context.Context, c Controller) error {
		return c.ReplaceConfigsSelect(ctx, configs, selected)
	})
}

// serverAddress returns host:port of the configuration, or the host alone.
func serverAddress(cfg storage.ClientConfig) string {
	server := cfg.Payload["server"]
	if port := cfg.Payload["server_port"]; server != "" && port != "" {
		return server + ":" + port
	}
	return server
}

func cloneConfigs(in []storage.ClientConfig) []storage.ClientConfig {
	out := make([]storage.ClientConfig, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	if m.form != nil {
		body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, m.form.View())
		return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
	}

	header := m.renderHeader()
	list := m.renderList()
	frameHeight := m.height - lipgloss.Height(header) - 3
	if frameHeight < 3 {
		frameHeight = 3
	}
	frame := frameStyle.Width(m.width - 2).Height(frameHeight).Render(list)

	return lipgloss.JoinVertical(lipgloss.Left, header, frame, m.renderStatusBar())
}

func (m Model) renderHeader() string {
	st := m.status
	var badge string
	switch {
	case st.Running:
		badge = runningBadgeStyle.Render("● Running " + st.Label)
	case st.State.Enabled && st.State.Selected != common.NoSelection:
		badge = faultBadgeStyle.Render("● Not running")
	case st.State.Enabled:
		badge = faultBadgeStyle.Render("● No configuration selected")
	default:
		badge = offBadgeStyle.Render("○ Off")
	}

	left := headerStyle.Render(" " + common.AppName)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - 1
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + badge
}

func (m Model) renderList() string {
	configs := m.status.State.Configs
	if len(configs) == 0 {
		return dimStyle.Render("No configurations. Press a to add one.")
	}

	lines := make([]string, 0, len(configs))
	for i, cfg := range configs {
		marker := "  "
		style := configStyle
		if i == m.status.State.Selected {
			marker = "● "
			style = selectedConfigStyle
		}

		line := marker + style.Render(cfg.DisplayName())
		if server := cfg.Payload["server"]; server != "" && server != cfg.DisplayName() {
			line += "  " + dimStyle.Render(server)
		}
		line = ansi.Truncate(line, m.width-6, "…")
		if i == m.cursor {
			line = cursorStyle.Width(m.width - 6).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatusBar() string {
	if m.confirmDelete {
		name := ""
		if cfg := m.status.State.ConfigAt(m.cursor); cfg != nil {
			name = cfg.DisplayName()
		}
		return confirmBarStyle.Width(m.width).Render(fmt.Sprintf(" Delete %q? (y/n)", name))
	}
	if m.err != nil {
		return errorBarStyle.Width(m.width).Render(" " + errorText(m.err))
	}
	if m.form != nil {
		return statusBarStyle.Width(m.width).Render(" " + keyHint("Ctrl+s", "save") + "  " + keyHint("Esc", "cancel"))
	}
	if m.notice != "" {
		return noticeBarStyle.Width(m.width).Render(" " + m.notice)
	}

	hints := []string{
		keyHint("Enter", "use"),
		keyHint("Space", enableHint(m.status.State.Enabled)),
		keyHint("a", "add"),
		keyHint("e", "edit"),
		keyHint("x", "delete"),
		keyHint("K/J", "move"),
		keyHint("c", "copy"),
		keyHint("Esc", "hide"),
		keyHint("Ctrl+q", "quit"),
	}
	return statusBarStyle.Width(m.width).Render(" " + strings.Join(hints, "  "))
}

func enableHint(enabled bool) string {
	if enabled {
		return "disable"
	}
	return "enable"
}

func errorText(err error) string {
	var pe *common.ProcessError
	if errors.As(err, &pe) {
		if len(pe.Output) > 0 {
			return pe.Error() + ": " + pe.Output[len(pe.Output)-1]
		}
	}
	return err.Error()
}

func keyHint(k, desc string) string {
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}
