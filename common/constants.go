// Package common provides shared constants, types, and utilities
// used across the Proxy Tray application.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "com.proxytray.app"
	// AppName is the display name of the application.
	AppName = "Proxy Tray"
	// BinaryName is the executable name used in autostart entries and help.
	BinaryName = "proxy-tray"
	// ConfigDirName is the name of the application-data directory.
	ConfigDirName = "proxy-tray"
)

// File names used by the application.
const (
	StateFileName       = "state.yaml"
	StateDBFileName     = "state.db"
	SettingsFileName    = "config.yaml"
	CredentialsFileName = ".credentials"
	LogFileName         = "proxy-tray.log"
	RunDirName          = "run"
	ClientConfigName    = "client.json"
)

// Default timeouts and intervals.
const (
	// StopTimeout bounds the graceful termination of the client process
	// before it is killed.
	StopTimeout = 5 * time.Second
	// KillTimeout bounds the wait after a kill signal.
	KillTimeout = 2 * time.Second
	// WatchDebounce coalesces bursts of file system events on the state file.
	WatchDebounce = 200 * time.Millisecond
	// IntentQueueSize is the buffer of the controller intent queue.
	IntentQueueSize = 64
)

// Environment variables exported to the client process.
const (
	EnvPrefix     = "PROXY_TRAY_"
	EnvConfigFile = EnvPrefix + "CONFIG"
	EnvLabel      = EnvPrefix + "LABEL"
)

// Store backends.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// NoSelection is the sentinel for "no configuration selected".
const NoSelection = -1

// UI constants.
const (
	// TrayIconSize is the size of the system tray icon.
	TrayIconSize = 22
	// MaxTraySlots is the number of pre-allocated configuration menu items.
	MaxTraySlots = 16
)
