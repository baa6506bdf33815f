// Package tui implements the terminal window of Proxy Tray.
// This file contains the messages delivered to the model.
package tui

import (
	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/controller"
	"github.com/yllada/proxy-tray/storage"
)

// StateMsg carries a new controller status snapshot.
type StateMsg struct {
	Status controller.Status
}

// ConfigsMsg carries the configuration list published after a load.
type ConfigsMsg struct {
	Configs  []storage.ClientConfig
	Selected int
}

// ExecErrorMsg carries a client process fault.
type ExecErrorMsg struct {
	Err *common.ProcessError
}

// ErrorMsg carries an error to display.
type ErrorMsg struct {
	Err error
}

// ExitMsg signals the controller has shut down.
type ExitMsg struct{}

// intentDoneMsg reports the result of an intent submitted from the window.
type intentDoneMsg struct {
	op  string
	err error
}

// copiedMsg reports a server address placed on the clipboard.
type copiedMsg struct {
	text string
	err  error
}
