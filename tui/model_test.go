package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/controller"
	"github.com/yllada/proxy-tray/storage"
)

// fakeController applies intents to a local state the way the controller
// does, recording every call.
type fakeController struct {
	mu       sync.Mutex
	status   controller.Status
	calls    []string
	replaced [][]storage.ClientConfig
	exited   bool
	handlers map[controller.EventType][]controller.Handler
}

func newFakeController(labels []string, selected int, enabled bool) *fakeController {
	s := storage.DefaultState()
	for _, l := range labels {
		s.Configs = append(s.Configs, storage.ClientConfig{ID: "id-" + l, Label: l})
	}
	s.Selected = selected
	s.Enabled = enabled
	return &fakeController{status: controller.Status{State: s}}
}

func (f *fakeController) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeController) SetEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("enable")
	f.status.State.Enabled = enabled
	return nil
}

func (f *fakeController) SetSelected(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("select")
	if !f.status.State.ValidIndex(index) {
		return &common.ValidationError{Field: "selected index", Value: index}
	}
	f.status.State.Selected = index
	return nil
}

func (f *fakeController) ReplaceConfigs(_ context.Context, configs []storage.ClientConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("replace")
	f.replaced = append(f.replaced, configs)
	s := &f.status.State
	s.Configs = configs
	switch {
	case s.Selected == common.NoSelection && len(configs) > 0:
		s.Selected = len(configs) - 1
	case s.Selected >= len(configs):
		s.Selected = common.NoSelection
	}
	return nil
}

func (f *fakeController) ReplaceConfigsSelect(_ context.Context, configs []storage.ClientConfig, selected int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("replace-select")
	if selected < common.NoSelection || selected >= len(configs) {
		return &common.ValidationError{Field: "selected index", Value: selected}
	}
	f.replaced = append(f.replaced, configs)
	f.status.State.Configs = configs
	f.status.State.Selected = selected
	return nil
}

func (f *fakeController) RequestExit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exit")
	f.exited = true
	return nil
}

func (f *fakeController) Subscribe(eventType controller.EventType, handler controller.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[controller.EventType][]controller.Handler)
	}
	f.handlers[eventType] = append(f.handlers[eventType], handler)
}

func (f *fakeController) publish(eventType controller.EventType, ev controller.Event) {
	f.mu.Lock()
	hs := f.handlers[eventType]
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeController) Status() controller.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status
	st.State = f.status.State.Clone()
	return st
}

func (f *fakeController) labels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.status.State.Configs))
	for _, c := range f.status.State.Configs {
		out = append(out, c.Label)
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msg to the model and runs the resulting command. Intent
// results are fed back in followed by the controller state, as the state
// event would deliver it.
func press(t *testing.T, m Model, ctrl *fakeController, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m, nil
	}
	out := cmd()
	if done, ok := out.(intentDoneMsg); ok {
		next, _ = m.Update(done)
		next, _ = next.Update(StateMsg{Status: ctrl.Status()})
		m = next.(Model)
	}
	return m, out
}

func TestNewModel_CursorOnSelection(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b", "c"}, 2, false)
	m := NewModel(ctrl)
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.cursor)
	}
}

func TestNavigation(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b"}, common.NoSelection, false)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("j"))
	m, _ = press(t, m, ctrl, runes("j"))
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	m, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyUp})
	m, _ = press(t, m, ctrl, runes("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestSelectAndToggle(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b"}, common.NoSelection, false)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("j"))
	m, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyEnter})
	if got := ctrl.Status().State.Selected; got != 1 {
		t.Errorf("Selected = %d, want 1", got)
	}

	m, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !ctrl.Status().State.Enabled {
		t.Error("space should enable the proxy")
	}

	_, _ = press(t, m, ctrl, runes("u"))
	if got := ctrl.Status().State.Selected; got != common.NoSelection {
		t.Errorf("Selected = %d, want none", got)
	}
}

func TestAddConfig(t *testing.T) {
	ctrl := newFakeController([]string{"a"}, 0, false)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("a"))
	if m.form == nil {
		t.Fatal("expected the form to open")
	}
	m.form.SetValue("Label", "Tokyo")
	m.form.SetValue("Server", "jp.example.net")
	m.form.SetValue("Password", "s3cret")

	m, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.form != nil {
		t.Error("form should close after save")
	}
	if got := ctrl.labels(); strings.Join(got, ",") != "a,Tokyo" {
		t.Fatalf("labels = %v", got)
	}
	added := ctrl.Status().State.Configs[1]
	if added.Payload["server"] != "jp.example.net" || added.Payload["password"] != "s3cret" {
		t.Errorf("payload = %v", added.Payload)
	}
	if _, ok := added.Payload["method"]; ok {
		t.Error("empty fields should not be stored")
	}
	if got := ctrl.Status().State.Selected; got != 0 {
		t.Errorf("Selected = %d, want 0", got)
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
}

func TestAddConfig_InvalidKeepsForm(t *testing.T) {
	ctrl := newFakeController(nil, common.NoSelection, false)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("a"))
	m, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.form == nil {
		t.Error("an empty form should stay open")
	}
	if !errors.Is(m.err, common.ErrValidation) {
		t.Errorf("err = %v, want validation error", m.err)
	}
	if len(ctrl.calls) != 0 {
		t.Errorf("calls = %v, want none", ctrl.calls)
	}
}

func TestEditConfig_KeepsUnknownPayload(t *testing.T) {
	ctrl := newFakeController([]string{"a"}, 0, false)
	ctrl.status.State.Configs[0].Payload = map[string]string{"server": "old", "plugin": "v2ray"}
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("e"))
	if m.form == nil || !m.form.Editing() {
		t.Fatal("expected the edit form")
	}
	m.form.SetValue("Server", "new")
	_, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyCtrlS})

	cfg := ctrl.Status().State.Configs[0]
	if cfg.ID != "id-a" || cfg.Label != "a" {
		t.Errorf("identity changed: %+v", cfg)
	}
	if cfg.Payload["server"] != "new" || cfg.Payload["plugin"] != "v2ray" {
		t.Errorf("payload = %v", cfg.Payload)
	}
}

func TestDeleteConfig_FollowsSelection(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b", "c"}, 2, true)
	m := NewModel(ctrl)

	m.cursor = 0
	m, _ = press(t, m, ctrl, runes("x"))
	if !m.confirmDelete {
		t.Fatal("expected a confirmation")
	}
	_, _ = press(t, m, ctrl, runes("y"))

	if got := ctrl.labels(); strings.Join(got, ",") != "b,c" {
		t.Fatalf("labels = %v", got)
	}
	if got := ctrl.Status().State.Selected; got != 1 {
		t.Errorf("Selected = %d, want 1 (still c)", got)
	}
	if got := strings.Join(ctrl.calls, ","); got != "replace-select" {
		t.Errorf("calls = %s, want a single replace-select", got)
	}
}

func TestDeleteConfig_SelectedEntryClearsSelection(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b"}, 0, true)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("x"))
	_, _ = press(t, m, ctrl, runes("y"))

	if got := ctrl.labels(); strings.Join(got, ",") != "b" {
		t.Fatalf("labels = %v", got)
	}
	if got := ctrl.Status().State.Selected; got != common.NoSelection {
		t.Errorf("Selected = %d, want none (b was never selected)", got)
	}
}

func TestDeleteConfig_Cancelled(t *testing.T) {
	ctrl := newFakeController([]string{"a"}, 0, false)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("x"))
	m, _ = press(t, m, ctrl, runes("n"))
	if m.confirmDelete {
		t.Error("confirmation should be dismissed")
	}
	if len(ctrl.calls) != 0 {
		t.Errorf("calls = %v, want none", ctrl.calls)
	}
}

func TestMoveConfig(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b", "c"}, 0, false)
	m := NewModel(ctrl)

	m, _ = press(t, m, ctrl, runes("J"))
	if got := ctrl.labels(); strings.Join(got, ",") != "b,a,c" {
		t.Fatalf("labels = %v", got)
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d, want 1", m.cursor)
	}
	if got := ctrl.Status().State.Selected; got != 1 {
		t.Errorf("Selected = %d, want 1 (still a)", got)
	}
	if got := strings.Join(ctrl.calls, ","); got != "replace-select" {
		t.Errorf("calls = %s, want a single replace-select", got)
	}

	_, _ = press(t, m, ctrl, runes("K"))
	if got := ctrl.labels(); strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("labels = %v", got)
	}
	if got := ctrl.Status().State.Selected; got != 0 {
		t.Errorf("Selected = %d, want 0", got)
	}
}

func TestHideAndQuit(t *testing.T) {
	ctrl := newFakeController([]string{"a"}, 0, false)
	m := NewModel(ctrl)

	_, out := press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := out.(tea.QuitMsg); !ok {
		t.Errorf("esc returned %T, want tea.QuitMsg", out)
	}
	if ctrl.exited {
		t.Error("hiding should not exit the application")
	}

	_, _ = press(t, m, ctrl, tea.KeyMsg{Type: tea.KeyCtrlQ})
	if !ctrl.exited {
		t.Error("ctrl+q should request exit")
	}

	_, out = press(t, m, ctrl, ExitMsg{})
	if _, ok := out.(tea.QuitMsg); !ok {
		t.Errorf("ExitMsg returned %T, want tea.QuitMsg", out)
	}
}

func TestStateMsg_ClampsCursor(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b", "c"}, 0, false)
	m := NewModel(ctrl)
	m.cursor = 2

	st := ctrl.Status()
	st.State.Configs = st.State.Configs[:1]
	m, _ = press(t, m, ctrl, StateMsg{Status: st})
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestConfigsMsg_ReplacesList(t *testing.T) {
	ctrl := newFakeController([]string{"a", "b", "c"}, 2, false)
	m := NewModel(ctrl)
	m.cursor = 2

	m, _ = press(t, m, ctrl, ConfigsMsg{
		Configs:  []storage.ClientConfig{{ID: "id-x", Label: "x"}},
		Selected: 0,
	})
	if got := m.status.State.Configs; len(got) != 1 || got[0].Label != "x" {
		t.Errorf("configs = %v, want only x", got)
	}
	if m.status.State.Selected != 0 || m.cursor != 0 {
		t.Errorf("selected = %d cursor = %d, want 0 0", m.status.State.Selected, m.cursor)
	}
}

func TestWindow_WaitsForInitialConfigs(t *testing.T) {
	ctrl := newFakeController([]string{"a"}, 0, false)
	w := NewWindow(ctrl)

	select {
	case <-w.loaded:
		t.Fatal("window loaded before the initial configs were published")
	default:
	}

	ctrl.publish(controller.EventInitConfigs, controller.ConfigsEvent{
		EventType: controller.EventInitConfigs,
		Configs:   ctrl.Status().State.Configs,
	})
	ctrl.publish(controller.EventInitConfigs, controller.ConfigsEvent{EventType: controller.EventInitConfigs})
	select {
	case <-w.loaded:
	default:
		t.Fatal("initial configs did not mark the window loaded")
	}
}

func TestWindow_ShowReturnsOnExitBeforeLoad(t *testing.T) {
	ctrl := newFakeController(nil, common.NoSelection, false)
	w := NewWindow(ctrl)

	done := make(chan error, 1)
	go func() { done <- w.Show() }()
	ctrl.publish(controller.EventExit, nil)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Show() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Show did not return after exit")
	}
}

func TestView(t *testing.T) {
	ctrl := newFakeController([]string{"Tokyo", "Frankfurt"}, 1, true)
	ctrl.status.Running = true
	ctrl.status.Label = "Frankfurt"
	m := NewModel(ctrl)

	view := m.View()
	for _, want := range []string{"Tokyo", "Frankfurt", "Running"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	pe := &common.ProcessError{Kind: common.KindExit, Label: "Frankfurt", Err: errors.New("exit status 1"), Output: []string{"bind failed"}}
	m, _ = press(t, m, ctrl, ExecErrorMsg{Err: pe})
	if !strings.Contains(m.View(), "bind failed") {
		t.Error("view should show the last client output line")
	}

	empty := NewModel(newFakeController(nil, common.NoSelection, false))
	if !strings.Contains(empty.View(), "No configurations") {
		t.Error("empty view should hint at adding a configuration")
	}
}

func TestCopyAddress(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })

	ctrl := newFakeController([]string{"a"}, 0, false)
	ctrl.status.State.Configs[0].Payload = map[string]string{"server": "jp.example.net", "server_port": "8388"}
	m := NewModel(ctrl)

	next, cmd := m.Update(runes("c"))
	if cmd == nil {
		t.Fatal("expected a copy command")
	}
	next, _ = next.Update(cmd())
	m = next.(Model)

	if copied != "jp.example.net:8388" {
		t.Errorf("copied %q", copied)
	}
	if !strings.Contains(m.View(), "Copied jp.example.net:8388") {
		t.Error("view should confirm the copy")
	}
}

func TestCopyAddress_NoServer(t *testing.T) {
	ctrl := newFakeController([]string{"a"}, 0, false)
	m := NewModel(ctrl)

	if _, cmd := m.Update(runes("c")); cmd != nil {
		t.Error("nothing to copy without a server")
	}
}
