package ui

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/controller"
	"github.com/yllada/proxy-tray/storage"
)

func TestGenerateIcon(t *testing.T) {
	tests := []struct {
		name  string
		state IconState
	}{
		{"running", IconRunning},
		{"disabled", IconDisabled},
		{"fault", IconFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := GenerateIcon(tt.state)
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}
			if got := img.Bounds().Dx(); got != common.TrayIconSize {
				t.Errorf("icon width = %d, want %d", got, common.TrayIconSize)
			}
		})
	}

	if bytes.Equal(GenerateIcon(IconRunning), GenerateIcon(IconDisabled)) {
		t.Error("running and disabled icons should differ")
	}
}

func statusWith(configs int, selected int, enabled, running bool) controller.Status {
	s := storage.DefaultState()
	for i := 0; i < configs; i++ {
		s.Configs = append(s.Configs, storage.ClientConfig{ID: fmt.Sprint(i), Label: fmt.Sprintf("cfg-%d", i)})
	}
	s.Selected = selected
	s.Enabled = enabled
	st := controller.Status{State: s, Running: running}
	if running {
		st.Label = s.Configs[selected].Label
	}
	return st
}

func TestBuildTrayView(t *testing.T) {
	tests := []struct {
		name       string
		status     controller.Status
		wantIcon   []byte
		wantStatus string
		wantSlots  int
		wantCheck  int
	}{
		{"off", statusWith(2, 0, false, false), iconDisabled, "Proxy off", 2, 0},
		{"running", statusWith(3, 1, true, true), iconRunning, "Running: cfg-1", 3, 1},
		{"not running", statusWith(1, 0, true, false), iconFault, "Not running: cfg-0", 1, 0},
		{"nothing selected", statusWith(2, common.NoSelection, true, false), iconDisabled, "No configuration selected", 2, -1},
		{"empty", statusWith(0, common.NoSelection, false, false), iconDisabled, "Proxy off", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := buildTrayView(tt.status)
			if !bytes.Equal(view.Icon, tt.wantIcon) {
				t.Error("unexpected icon")
			}
			if !strings.Contains(view.Status, tt.wantStatus) {
				t.Errorf("Status = %q, want it to contain %q", view.Status, tt.wantStatus)
			}
			if len(view.Slots) != tt.wantSlots {
				t.Fatalf("len(Slots) = %d, want %d", len(view.Slots), tt.wantSlots)
			}
			for i, slot := range view.Slots {
				if slot.Checked != (i == tt.wantCheck) {
					t.Errorf("slot %d Checked = %v", i, slot.Checked)
				}
			}
			if view.Enabled != tt.status.State.Enabled {
				t.Errorf("Enabled = %v, want %v", view.Enabled, tt.status.State.Enabled)
			}
		})
	}
}

func TestBuildTrayView_Overflow(t *testing.T) {
	view := buildTrayView(statusWith(common.MaxTraySlots+3, 0, false, false))
	if len(view.Slots) != common.MaxTraySlots {
		t.Errorf("len(Slots) = %d, want %d", len(view.Slots), common.MaxTraySlots)
	}
	if view.Overflow != 3 {
		t.Errorf("Overflow = %d, want 3", view.Overflow)
	}
}

func TestExecErrorMessage(t *testing.T) {
	tests := []struct {
		kind      common.ProcessErrorKind
		wantTitle string
	}{
		{common.KindSpawn, "failed to start"},
		{common.KindExit, "stopped unexpectedly"},
		{common.KindTerminate, "did not stop"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			pe := &common.ProcessError{
				Kind:   tt.kind,
				Label:  "Tokyo",
				Err:    errors.New("exit status 1"),
				Output: []string{"first", "bind: address already in use"},
			}
			title, body := execErrorMessage(pe)
			if !strings.Contains(title, tt.wantTitle) {
				t.Errorf("title = %q, want it to contain %q", title, tt.wantTitle)
			}
			if !strings.HasPrefix(body, "Tokyo: exit status 1") {
				t.Errorf("body = %q", body)
			}
			if !strings.HasSuffix(body, "address already in use") {
				t.Errorf("body should end with the last output line, got %q", body)
			}
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	if got := truncateTitle("Tokyo"); got != "Tokyo" {
		t.Errorf("truncateTitle(short) = %q", got)
	}

	long := strings.Repeat("東京", 40)
	got := truncateTitle(long)
	if w := runewidth.StringWidth(got); w > maxTitleWidth {
		t.Errorf("width = %d, want <= %d", w, maxTitleWidth)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated title should end with an ellipsis, got %q", got)
	}
}
