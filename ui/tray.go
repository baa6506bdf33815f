package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/systray"
	"github.com/mattn/go-runewidth"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/controller"
)

// intentTimeout bounds how long a menu click waits for the controller.
const intentTimeout = 30 * time.Second

// maxTitleWidth caps menu titles, in terminal cells.
const maxTitleWidth = 48

// Controller is the part of the controller the tray talks to.
type Controller interface {
	SetEnabled(ctx context.Context, enabled bool) error
	SetSelected(ctx context.Context, index int) error
	SetAutoLaunch(ctx context.Context, enabled bool) error
	ShowWindow(ctx context.Context) error
	RequestExit(ctx context.Context) error
	Subscribe(eventType controller.EventType, handler controller.Handler)
	Status() controller.Status
}

// Pre-generated icons.
var (
	iconRunning  = GenerateIcon(IconRunning)
	iconDisabled = GenerateIcon(IconDisabled)
	iconFault    = GenerateIcon(IconFault)
)

// TrayOptions configures the tray.
type TrayOptions struct {
	// Notifier receives process faults; nil disables notifications.
	Notifier common.Notifier
	// WindowAvailable shows the "Open window" entry.
	WindowAvailable bool
}

// TrayIndicator renders the controller state in the system tray and turns
// menu clicks into intents.
type TrayIndicator struct {
	ctrl Controller
	opts TrayOptions

	statusItem     *systray.MenuItem
	enableItem     *systray.MenuItem
	noConfigsItem  *systray.MenuItem
	overflowItem   *systray.MenuItem
	autoLaunchItem *systray.MenuItem
	showItem       *systray.MenuItem
	quitItem       *systray.MenuItem

	// Pre-allocated configuration slots; slot i shows configs[i]
	slots [common.MaxTraySlots]*systray.MenuItem

	mu    sync.Mutex
	ready bool
	view  trayView
}

// NewTrayIndicator creates a tray bound to ctrl. Events are rendered once
// the tray is ready.
func NewTrayIndicator(ctrl Controller, opts TrayOptions) *TrayIndicator {
	t := &TrayIndicator{ctrl: ctrl, opts: opts}

	ctrl.Subscribe(controller.EventStateChanged, func(ev controller.Event) {
		if se, ok := ev.(controller.StateEvent); ok {
			t.render(buildTrayView(se.Status))
		}
	})
	ctrl.Subscribe(controller.EventExecError, func(ev controller.Event) {
		if ee, ok := ev.(controller.ExecErrorEvent); ok {
			t.notifyExecError(ee.Err)
		}
	})
	ctrl.Subscribe(controller.EventExit, func(controller.Event) {
		systray.Quit()
	})
	return t
}

// Run starts the tray. It blocks until the tray exits and must be called
// from the main goroutine.
func (t *TrayIndicator) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the systray is ready.
func (t *TrayIndicator) onReady() {
	systray.SetIcon(iconDisabled)
	systray.SetTitle(common.AppName)
	systray.SetTooltip(common.AppName)

	t.statusItem = systray.AddMenuItem("Proxy off", "Current proxy status")
	t.statusItem.Disable()

	t.enableItem = systray.AddMenuItemCheckbox("Enable proxy", "Run the proxy client", false)

	systray.AddSeparator()

	for i := range t.slots {
		t.slots[i] = systray.AddMenuItemCheckbox("", "Use this configuration", false)
		t.slots[i].Hide()
	}
	t.noConfigsItem = systray.AddMenuItem("No configurations", "")
	t.noConfigsItem.Disable()
	t.overflowItem = systray.AddMenuItem("", "Open the window to see all configurations")
	t.overflowItem.Disable()
	t.overflowItem.Hide()

	systray.AddSeparator()

	t.autoLaunchItem = systray.AddMenuItemCheckbox("Launch at login", "Start "+common.AppName+" when you log in", false)
	if t.opts.WindowAvailable {
		t.showItem = systray.AddMenuItem("Open window", "Show the configuration window")
	}

	systray.AddSeparator()
	t.quitItem = systray.AddMenuItem("Quit", "Stop the proxy and quit")

	t.handleClicks()

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()
	t.render(buildTrayView(t.ctrl.Status()))
}

// onExit is called when the systray is about to exit.
func (t *TrayIndicator) onExit() {
	common.LogInfo("Tray: indicator closed")
}

func (t *TrayIndicator) handleClicks() {
	go func() {
		for range t.enableItem.ClickedCh {
			t.mu.Lock()
			enabled := t.view.Enabled
			t.mu.Unlock()
			t.submit("change-enable", func(ctx context.Context) error {
				return t.ctrl.SetEnabled(ctx, !enabled)
			})
		}
	}()

	go func() {
		for range t.autoLaunchItem.ClickedCh {
			t.mu.Lock()
			auto := t.view.AutoLaunch
			t.mu.Unlock()
			t.submit("change-auto-launch", func(ctx context.Context) error {
				return t.ctrl.SetAutoLaunch(ctx, !auto)
			})
		}
	}()

	for i := range t.slots {
		go func(slot int, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.submit("change-selected", func(ctx context.Context) error {
					return t.ctrl.SetSelected(ctx, slot)
				})
			}
		}(i, t.slots[i])
	}

	if t.showItem != nil {
		go func() {
			for range t.showItem.ClickedCh {
				t.submit("click", t.ctrl.ShowWindow)
			}
		}()
	}

	go func() {
		for range t.quitItem.ClickedCh {
			common.LogInfo("Tray: quit requested")
			t.submit("exit", t.ctrl.RequestExit)
		}
	}()
}

func (t *TrayIndicator) submit(name string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), intentTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			common.LogWarn("Tray: %s failed: %v", name, err)
		}
	}()
}

// render applies view to the menu.
func (t *TrayIndicator) render(view trayView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view = view
	if !t.ready {
		return
	}

	systray.SetIcon(view.Icon)
	systray.SetTooltip(view.Tooltip)
	t.statusItem.SetTitle(view.Status)
	setChecked(t.enableItem, view.Enabled)
	setChecked(t.autoLaunchItem, view.AutoLaunch)

	for i, item := range t.slots {
		if i >= len(view.Slots) {
			item.Hide()
			continue
		}
		item.SetTitle(view.Slots[i].Title)
		setChecked(item, view.Slots[i].Checked)
		item.Show()
	}

	if len(view.Slots) == 0 {
		t.noConfigsItem.Show()
	} else {
		t.noConfigsItem.Hide()
	}
	if view.Overflow > 0 {
		t.overflowItem.SetTitle(fmt.Sprintf("%d more...", view.Overflow))
		t.overflowItem.Show()
	} else {
		t.overflowItem.Hide()
	}
}

func setChecked(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func (t *TrayIndicator) notifyExecError(pe *common.ProcessError) {
	if t.opts.Notifier == nil || pe == nil {
		return
	}
	title, body := execErrorMessage(pe)

	var err error
	if dn, ok := t.opts.Notifier.(*DesktopNotifier); ok {
		err = dn.NotifyError(title, body)
	} else {
		err = t.opts.Notifier.Notify(title, body)
	}
	if err != nil {
		common.LogWarn("Tray: could not show notification: %v", err)
	}
}

// trayView is the rendered form of a controller status.
type trayView struct {
	Icon       []byte
	Tooltip    string
	Status     string
	Enabled    bool
	AutoLaunch bool
	Slots      []slotView
	Overflow   int
}

type slotView struct {
	Title   string
	Checked bool
}

func buildTrayView(st controller.Status) trayView {
	s := st.State
	view := trayView{
		Enabled:    s.Enabled,
		AutoLaunch: s.AutoLaunch,
	}

	selected := s.Selection()
	switch {
	case st.Running:
		view.Icon = iconRunning
		view.Status = "● Running: " + truncateTitle(st.Label)
		view.Tooltip = fmt.Sprintf("%s - %s", common.AppName, st.Label)
	case s.Enabled && selected != nil:
		view.Icon = iconFault
		view.Status = "○ Not running: " + truncateTitle(selected.DisplayName())
		view.Tooltip = fmt.Sprintf("%s - client not running", common.AppName)
	case s.Enabled:
		view.Icon = iconDisabled
		view.Status = "○ No configuration selected"
		view.Tooltip = fmt.Sprintf("%s - nothing selected", common.AppName)
	default:
		view.Icon = iconDisabled
		view.Status = "○ Proxy off"
		view.Tooltip = fmt.Sprintf("%s - off", common.AppName)
	}

	for i, cfg := range s.Configs {
		if i >= common.MaxTraySlots {
			view.Overflow = len(s.Configs) - common.MaxTraySlots
			break
		}
		view.Slots = append(view.Slots, slotView{
			Title:   truncateTitle(cfg.DisplayName()),
			Checked: i == s.Selected,
		})
	}
	return view
}

func truncateTitle(title string) string {
	return runewidth.Truncate(title, maxTitleWidth, "…")
}
