// Package cli implements the proxy-tray command tree.
// This file contains the version command.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/yllada/proxy-tray/common"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", styleBrand.Render(common.AppName), styleVersion.Render(buildInfo.Version))
		if buildInfo.BuildTime != "unknown" {
			fmt.Printf("  %s %s\n", styleLabel.Render("Build: "), buildInfo.BuildTime)
			fmt.Printf("  %s %s\n", styleLabel.Render("Commit:"), buildInfo.Commit)
		}
		fmt.Printf("  %s %s/%s\n", styleLabel.Render("OS/Arch:"), runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  %s %s\n", styleLabel.Render("Go:"), runtime.Version())
	},
}
