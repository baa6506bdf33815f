// Package supervisor runs the external proxy client.
//
// A Supervisor owns at most one client process. Apply reconciles that
// process with the desired state:
//
//   - enabled with a configuration and nothing running: start it
//   - enabled with the configuration already running: leave it alone
//   - enabled with a different configuration running: restart
//   - disabled or no configuration: stop whatever runs
//
// The payload of the configuration is handed to the client through a run
// file (passed as "-c <file>") and PROXY_TRAY_* environment variables.
//
// # Failures
//
// Spawn failures and unexpected exits are reported asynchronously through
// the callback registered with SetOnError. The supervisor never retries.
// Stop asks the client to terminate, waits for the stop timeout and then
// kills it; only a client that survives the kill makes Stop fail.
package supervisor
