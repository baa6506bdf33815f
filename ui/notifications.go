// Package ui provides the desktop integration of Proxy Tray.
// This file contains desktop notifications.
package ui

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/proxy-tray/common"
)

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"

	notifyTimeout = 8000 // milliseconds
)

// Urgency levels of the freedesktop notification spec.
const (
	urgencyLow      byte = 0
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// DesktopNotifier sends notifications over the session bus and falls back to
// notify-send when no bus is reachable.
type DesktopNotifier struct {
	mu        sync.Mutex
	conn      *dbus.Conn
	lastID    uint32
	appName   string
	iconName  string
	useBinary bool
}

// NewDesktopNotifier connects to the session bus. The returned notifier is
// always usable.
func NewDesktopNotifier() *DesktopNotifier {
	n := &DesktopNotifier{appName: common.AppName, iconName: "network-workgroup"}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		common.LogWarn("Notifications: session bus unavailable, using notify-send: %v", err)
		n.useBinary = true
		return n
	}
	n.conn = conn
	return n
}

// Notify shows a normal notification.
func (n *DesktopNotifier) Notify(title, message string) error {
	return n.send(title, message, urgencyNormal)
}

// NotifyError shows a critical notification. Each error replaces the
// previous one so a crash-looping client does not flood the desktop.
func (n *DesktopNotifier) NotifyError(title, message string) error {
	return n.send(title, message, urgencyCritical)
}

func (n *DesktopNotifier) send(title, message string, urgency byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.useBinary && n.conn != nil {
		obj := n.conn.Object(notificationsDest, notificationsPath)
		hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency)}
		call := obj.Call(notificationsIface+".Notify", 0,
			n.appName, n.lastID, n.iconName, title, message,
			[]string{}, hints, int32(notifyTimeout))
		if call.Err == nil {
			var id uint32
			if err := call.Store(&id); err == nil {
				n.lastID = id
			}
			return nil
		}
		common.LogWarn("Notifications: D-Bus notify failed, using notify-send: %v", call.Err)
	}

	return n.sendBinary(title, message, urgency)
}

func (n *DesktopNotifier) sendBinary(title, message string, urgency byte) error {
	level := "normal"
	switch urgency {
	case urgencyCritical:
		level = "critical"
	case urgencyLow:
		level = "low"
	}

	cmd := exec.Command("notify-send",
		"--app-name="+n.appName,
		"--icon="+n.iconName,
		"--urgency="+level,
		title,
		message,
	)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}

// Close releases the bus connection.
func (n *DesktopNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil {
		return nil
	}
	err := n.conn.Close()
	n.conn = nil
	return err
}

// execErrorMessage formats a process fault for a notification body.
func execErrorMessage(pe *common.ProcessError) (title, body string) {
	switch pe.Kind {
	case common.KindSpawn:
		title = "Proxy client failed to start"
	case common.KindTerminate:
		title = "Proxy client did not stop"
	default:
		title = "Proxy client stopped unexpectedly"
	}
	body = pe.Label
	if pe.Err != nil {
		body = fmt.Sprintf("%s: %v", pe.Label, pe.Err)
	}
	if n := len(pe.Output); n > 0 {
		body += "\n" + pe.Output[n-1]
	}
	return title, body
}
