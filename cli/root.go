// Package cli implements the proxy-tray command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/yllada/proxy-tray/common"
)

// BuildInfo is injected by main from ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	Commit    string
}

var (
	buildInfo = BuildInfo{Version: "dev", BuildTime: "unknown", Commit: "unknown"}

	dataDirFlag string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   common.BinaryName,
	Short: "Control a proxy client from the system tray",
	Long: `Proxy Tray keeps a list of proxy client configurations and runs the
client for the selected one while the proxy is enabled.

Without a subcommand it starts the tray and, on a terminal, the window.`,
	SilenceUsage: true,
	RunE:         runApp,
}

// Execute runs the CLI.
func Execute(info BuildInfo) error {
	if info.Version != "" {
		buildInfo = info
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "application data directory (default $XDG_CONFIG_HOME/proxy-tray)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&noTrayFlag, "no-tray", false, "run without the tray icon")
	rootCmd.Flags().BoolVar(&noWindowFlag, "no-window", false, "start with the window hidden")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDataDir returns --data-dir or the default data directory.
func resolveDataDir() (string, error) {
	if dataDirFlag != "" {
		return dataDirFlag, nil
	}
	return common.DefaultDataDir()
}
