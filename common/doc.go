// Package common provides shared constants, types, utilities, and interfaces
// used throughout the Proxy Tray application.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: Application-wide constants like timeouts and file names
//   - Errors: The error taxonomy (ValidationError, IOError, ProcessError)
//     and sentinel errors checked with errors.Is
//   - Interfaces: Collaborator abstractions (auto-launch, secrets, notifier)
//   - Logger: Levelled logging to stdout and a rotating log file
//   - Utils: Data directory resolution and atomic file writes
//
// # Usage
//
//	common.LogInfo("Selected configuration %d", index)
//
//	var verr *common.ValidationError
//	if errors.As(err, &verr) {
//	    // Report to the originating collaborator
//	}
package common
