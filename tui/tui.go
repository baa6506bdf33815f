// Package tui implements the terminal window of Proxy Tray: a list of
// client configurations with an add/edit form. Hiding the window leaves
// the tray running; the tray's "Open window" entry shows it again.
package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/controller"
	"github.com/yllada/proxy-tray/storage"
)

// Controller is the part of the controller the window talks to.
type Controller interface {
	SetEnabled(ctx context.Context, enabled bool) error
	SetSelected(ctx context.Context, index int) error
	ReplaceConfigs(ctx context.Context, configs []storage.ClientConfig) error
	ReplaceConfigsSelect(ctx context.Context, configs []storage.ClientConfig, selected int) error
	RequestExit(ctx context.Context) error
	Subscribe(eventType controller.EventType, handler controller.Handler)
	Status() controller.Status
}

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// Window shows and hides the terminal UI on request.
type Window struct {
	ctrl Controller
	ref  *programRef

	show     chan struct{}
	loaded   chan struct{}
	exited   chan struct{}
	loadOnce sync.Once
	once     sync.Once
}

// NewWindow creates the window and subscribes it to controller events.
// Subscribe before the controller runs so the initial state is not missed.
func NewWindow(ctrl Controller) *Window {
	w := &Window{
		ctrl:   ctrl,
		ref:    &programRef{},
		show:   make(chan struct{}, 1),
		loaded: make(chan struct{}),
		exited: make(chan struct{}),
	}

	ctrl.Subscribe(controller.EventInitConfigs, func(ev controller.Event) {
		w.loadOnce.Do(func() { close(w.loaded) })
		if e, ok := ev.(controller.ConfigsEvent); ok {
			w.ref.Send(ConfigsMsg{Configs: e.Configs, Selected: e.Selected})
		}
	})
	ctrl.Subscribe(controller.EventStateChanged, func(ev controller.Event) {
		if e, ok := ev.(controller.StateEvent); ok {
			w.ref.Send(StateMsg{Status: e.Status})
		}
	})
	ctrl.Subscribe(controller.EventExecError, func(ev controller.Event) {
		if e, ok := ev.(controller.ExecErrorEvent); ok {
			w.ref.Send(ExecErrorMsg{Err: e.Err})
		}
	})
	ctrl.Subscribe(controller.EventError, func(ev controller.Event) {
		if e, ok := ev.(controller.ErrorEvent); ok {
			w.ref.Send(ErrorMsg{Err: e.Err})
		}
	})
	ctrl.Subscribe(controller.EventShowWindow, func(controller.Event) {
		select {
		case w.show <- struct{}{}:
		default:
		}
	})
	ctrl.Subscribe(controller.EventExit, func(controller.Event) {
		w.once.Do(func() { close(w.exited) })
	})

	return w
}

// Run shows the window when visible is true and again on every show
// request until the controller exits or ctx is done.
func (w *Window) Run(ctx context.Context, visible bool) error {
	for {
		if visible {
			if err := w.Show(); err != nil {
				return err
			}
			common.LogDebug("TUI: window hidden")
		}

		select {
		case <-w.show:
			visible = true
		case <-w.exited:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Show runs the window until it is hidden or the controller exits. It
// waits for the initial configuration list before drawing anything.
func (w *Window) Show() error {
	select {
	case <-w.exited:
		return nil
	default:
	}
	select {
	case <-w.loaded:
	case <-w.exited:
		return nil
	}

	model := NewModel(w.ctrl)
	p := tea.NewProgram(model, tea.WithAltScreen())
	w.ref.Set(p)
	defer w.ref.Clear()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-w.exited:
			p.Send(ExitMsg{})
		case <-finished:
		}
	}()

	_, err := p.Run()
	return err
}
