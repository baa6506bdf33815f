// Package cli implements the proxy-tray command tree.
// This file contains the list and status commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/proxy-tray/autolaunch"
	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/config"
	"github.com/yllada/proxy-tray/storage"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List client configurations",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved state and the running client",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// openState loads the saved state without touching the secret store.
func openState() (string, storage.State, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return "", storage.State{}, err
	}
	cfg, err := config.Load(dataDir)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	store, err := storage.Open(cfg.StoreBackend, dataDir)
	if err != nil {
		return "", storage.State{}, err
	}
	defer store.Close()

	state := store.Load()
	state.Normalize()
	return dataDir, state, nil
}

func runList(cmd *cobra.Command, args []string) error {
	_, state, err := openState()
	if err != nil {
		return err
	}
	printConfigs(os.Stdout, state)
	return nil
}

func printConfigs(out io.Writer, state storage.State) {
	if len(state.Configs) == 0 {
		fmt.Fprintln(out, "No client configurations.")
		fmt.Fprintln(out, styleHint.Render("Add one from the window: "+common.BinaryName))
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSELECTED\tNAME\tSERVER\tID")
	fmt.Fprintln(w, "-\t--------\t----\t------\t--")

	for i, cfg := range state.Configs {
		selected := ""
		if i == state.Selected {
			selected = "*"
		}

		server := cfg.Payload["server"]
		if port := cfg.Payload["server_port"]; server != "" && port != "" {
			server += ":" + port
		}
		if server == "" {
			server = "-"
		}

		// Truncate ID for display
		shortID := cfg.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, selected, cfg.DisplayName(), server, shortID)
	}

	w.Flush()
}

func runStatus(cmd *cobra.Command, args []string) error {
	dataDir, state, err := openState()
	if err != nil {
		return err
	}

	enabled := styleHint.Render("disabled")
	if state.Enabled {
		enabled = styleSuccess.Render("enabled")
	}
	selected := styleHint.Render("none")
	if cfg := state.Selection(); cfg != nil {
		selected = styleValue.Render(cfg.DisplayName())
	}
	autoLaunch := "no"
	if registered, err := autolaunch.NewXDG().IsEnabled(); err == nil && registered {
		autoLaunch = "yes"
	}

	label := styleLabel.Width(17)
	fmt.Printf("%s%s\n", label.Render("Proxy:"), enabled)
	fmt.Printf("%s%s\n", label.Render("Selected:"), selected)
	fmt.Printf("%s%d\n", label.Render("Configurations:"), len(state.Configs))
	fmt.Printf("%s%s\n", label.Render("Launch at login:"), autoLaunch)

	runs := activeRuns(common.RunDir(dataDir))
	if len(runs) == 0 {
		fmt.Println(styleHint.Render("No client process is running."))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tUPTIME\tFILE")
	fmt.Fprintln(w, "---\t------\t----")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.id, formatDuration(time.Since(r.started)), r.path)
	}
	w.Flush()
	return nil
}

type runFile struct {
	id      string
	path    string
	started time.Time
}

// activeRuns lists the client files of the running instance.
func activeRuns(runDir string) []runFile {
	matches, _ := filepath.Glob(filepath.Join(runDir, "*-"+common.ClientConfigName))
	runs := make([]runFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(filepath.Base(m), "-"+common.ClientConfigName)
		runs = append(runs, runFile{id: id, path: m, started: info.ModTime()})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].started.Before(runs[j].started) })
	return runs
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
