// Package main provides the entry point for Proxy Tray.
// Proxy Tray keeps a list of proxy client configurations and runs the
// external client for the selected one while the proxy is enabled.
//
// Usage:
//
//	proxy-tray [run] [--no-tray] [--no-window]
//	proxy-tray list | status | version
//
// Environment:
//
//	The client command (sslocal by default, see config.yaml) must be
//	installed for the proxy to start.
package main

import (
	"os"

	"github.com/yllada/proxy-tray/cli"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

func main() {
	info := cli.BuildInfo{Version: appVersion, BuildTime: buildTime, Commit: commitSHA}
	if err := cli.Execute(info); err != nil {
		os.Exit(1)
	}
}
