package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/storage"
)

func TestPrintConfigs(t *testing.T) {
	state := storage.State{
		Configs: []storage.ClientConfig{
			{ID: "0123456789abcdef", Label: "Tokyo", Payload: map[string]string{"server": "jp.example.net", "server_port": "8388"}},
			{ID: "b", Payload: map[string]string{"server": "de.example.net"}},
		},
		Selected: 1,
	}

	var buf bytes.Buffer
	printConfigs(&buf, state)
	out := buf.String()

	for _, want := range []string{"Tokyo", "jp.example.net:8388", "01234567", "de.example.net"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0123456789") {
		t.Error("IDs should be truncated")
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[3], "*") || strings.Contains(lines[2], "*") {
		t.Errorf("only the selected row should be marked:\n%s", out)
	}
}

func TestPrintConfigs_Empty(t *testing.T) {
	var buf bytes.Buffer
	printConfigs(&buf, storage.DefaultState())
	if !strings.Contains(buf.String(), "No client configurations") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestActiveRuns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"aaaaaaaa-" + common.ClientConfigName, "unrelated.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	runs := activeRuns(dir)
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].id != "aaaaaaaa" {
		t.Errorf("id = %q, want aaaaaaaa", runs[0].id)
	}
}

func TestRemoveStaleRunFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "deadbeef-"+common.ClientConfigName)
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stale, other} {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	removeStaleRunFiles(dir)

	if common.FileExists(stale) {
		t.Error("stale client file should be removed")
	}
	if !common.FileExists(other) {
		t.Error("unrelated files should be kept")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + time.Minute, "2h 1m 0s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"list", "run", "status", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"no-tray", "no-window"} {
		if rootCmd.Flags().Lookup(flag) == nil {
			t.Errorf("root flag --%s missing", flag)
		}
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run flag --%s missing", flag)
		}
	}
	if rootCmd.PersistentFlags().Lookup("data-dir") == nil {
		t.Error("persistent flag --data-dir missing")
	}
}
