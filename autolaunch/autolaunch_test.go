package autolaunch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestXDG_EnableDisable(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	x := &XDG{Exec: "/usr/bin/proxy-tray"}

	enabled, err := x.IsEnabled()
	if err != nil {
		t.Fatalf("IsEnabled() error = %v", err)
	}
	if enabled {
		t.Fatal("IsEnabled() = true before Enable")
	}

	if err := x.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	path, _ := x.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Exec=/usr/bin/proxy-tray --no-window") {
		t.Errorf("entry missing Exec line:\n%s", data)
	}
	if enabled, _ := x.IsEnabled(); !enabled {
		t.Error("IsEnabled() = false after Enable")
	}

	if err := x.Disable(); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if enabled, _ := x.IsEnabled(); enabled {
		t.Error("IsEnabled() = true after Disable")
	}
	if err := x.Disable(); err != nil {
		t.Errorf("second Disable() error = %v", err)
	}
}

func TestXDG_HiddenEntry(t *testing.T) {
	dir := t.TempDir()
	x := &XDG{Exec: "proxy-tray", dir: dir}

	path := filepath.Join(dir, "proxy-tray.desktop")
	if err := os.WriteFile(path, []byte("[Desktop Entry]\nHidden=true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if enabled, _ := x.IsEnabled(); enabled {
		t.Error("a hidden entry should count as disabled")
	}
}

func TestXDG_DirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)

	dir, err := (&XDG{}).Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if want := filepath.Join(home, ".config", "autostart"); dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}

func TestQuoteExec(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/usr/bin/proxy-tray", "/usr/bin/proxy-tray"},
		{"/opt/Proxy Tray/proxy-tray", `"/opt/Proxy Tray/proxy-tray"`},
		{`/tmp/a"b`, `"/tmp/a\"b"`},
	}

	for _, tt := range tests {
		if got := quoteExec(tt.in); got != tt.want {
			t.Errorf("quoteExec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
