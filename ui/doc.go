// Package ui provides the desktop integration of Proxy Tray.
//
// # Tray
//
// TrayIndicator renders the controller state in the system tray using
// fyne.io/systray. The menu holds:
//
//   - a status line and an "Enable proxy" checkbox
//   - one checkbox per configuration, the selected one checked
//   - "Launch at login", "Open window" and "Quit"
//
// Configuration entries are pre-allocated slots that are re-titled and
// shown or hidden on every state change, since systray cannot remove menu
// items.
//
// Clicks become controller intents; the tray never changes state itself.
//
// # Notifications
//
// DesktopNotifier sends org.freedesktop.Notifications messages over the
// D-Bus session bus, falling back to notify-send. Client process faults are
// shown as critical notifications.
//
// # Icons
//
// Tray icons are generated at startup as PNG images: blue while the client
// runs, orange when enabled but not running and gray when disabled.
package ui
