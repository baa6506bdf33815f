// Package controller coordinates the configuration list, the persisted
// state and the client process.
//
// A Controller owns the state exclusively. Collaborators (tray, window,
// file watcher) change it only through intents such as SetEnabled or
// ReplaceConfigs; each intent is processed to completion on the controller
// goroutine before the next one starts:
//
//  1. validate (rejected intents leave the state untouched)
//  2. persist through the storage.Store
//  3. reconcile the client process through the Runner
//  4. publish notifications on the Bus
//
// After every intent the client runs iff the state is enabled and a
// configuration is selected. Process faults are published as
// EventExecError and never change the desired state.
//
// RequestExit preempts the queue: the client is stopped (killed after the
// stop timeout) and Run returns.
package controller
