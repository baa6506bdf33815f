// Package common provides shared constants, types, and utilities
// used across the Proxy Tray application.
package common

// AutoLauncher registers the application for OS login auto-start.
// Implementations are platform collaborators; the controller only delegates.
type AutoLauncher interface {
	// Enable registers the application to start at login.
	Enable() error
	// Disable removes the login registration.
	Disable() error
	// IsEnabled reports whether the registration is present.
	IsEnabled() (bool, error)
}

// SecretStore holds credential values outside the state file.
type SecretStore interface {
	// Store saves a secret under key.
	Store(key, secret string) error
	// Get retrieves the secret saved under key.
	Get(key string) (string, error)
	// Delete removes the secret saved under key.
	Delete(key string) error
}

// Notifier shows desktop notifications for controller events.
type Notifier interface {
	Notify(title, message string) error
}
