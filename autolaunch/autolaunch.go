// Package autolaunch registers Proxy Tray to start at login using an XDG
// autostart entry.
package autolaunch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yllada/proxy-tray/common"
)

// XDG manages $XDG_CONFIG_HOME/autostart/proxy-tray.desktop.
type XDG struct {
	// Exec is the command line written to the entry.
	Exec string
	// dir overrides the autostart directory in tests.
	dir string
}

// NewXDG creates an autostart manager for the running executable.
func NewXDG() *XDG {
	exe, err := os.Executable()
	if err != nil {
		exe = common.BinaryName
	}
	return &XDG{Exec: exe}
}

// Dir returns the autostart directory.
func (x *XDG) Dir() (string, error) {
	if x.dir != "" {
		return x.dir, nil
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

// Path returns the desktop entry path.
func (x *XDG) Path() (string, error) {
	dir, err := x.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.BinaryName+".desktop"), nil
}

// Enable writes the desktop entry.
func (x *XDG) Enable() error {
	path, err := x.Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &common.IOError{Op: "create autostart directory", Path: filepath.Dir(path), Err: err}
	}
	if err := common.WriteFileAtomic(path, []byte(x.entry()), 0644); err != nil {
		return &common.IOError{Op: "write autostart entry", Path: path, Err: err}
	}
	common.LogInfo("Autolaunch: registered %s", path)
	return nil
}

// Disable removes the desktop entry. A missing entry is not an error.
func (x *XDG) Disable() error {
	path, err := x.Path()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &common.IOError{Op: "remove autostart entry", Path: path, Err: err}
	}
	common.LogInfo("Autolaunch: unregistered %s", path)
	return nil
}

// IsEnabled reports whether the entry exists and is not hidden.
func (x *XDG) IsEnabled() (bool, error) {
	path, err := x.Path()
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &common.IOError{Op: "read autostart entry", Path: path, Err: err}
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.EqualFold(strings.TrimSpace(line), "Hidden=true") {
			return false, nil
		}
	}
	return true, nil
}

func (x *XDG) entry() string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", common.AppName)
	b.WriteString("Comment=Proxy client controller\n")
	fmt.Fprintf(&b, "Exec=%s --no-window\n", quoteExec(x.Exec))
	fmt.Fprintf(&b, "Icon=%s\n", common.BinaryName)
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}

// quoteExec quotes an Exec argument following Desktop Entry quoting rules when it
// contains reserved characters.
func quoteExec(arg string) string {
	if !strings.ContainsAny(arg, " \t\"'\\$`") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(arg) + `"`
}
