package common

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrapError(t *testing.T) {
	originalErr := ErrNotRunning
	wrapped := WrapError(originalErr, "additional context")

	if wrapped == nil {
		t.Fatal("WrapError should return non-nil error")
	}

	if !strings.Contains(wrapped.Error(), "additional context") {
		t.Error("WrapError should include additional context")
	}

	if !errors.Is(wrapped, ErrNotRunning) {
		t.Error("WrapError should unwrap to the original error")
	}

	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	verr := &ValidationError{Field: "selected", Value: 3, Reason: "out of range"}
	ioerr := &IOError{Op: "write state", Path: "/tmp/state.yaml", Err: os.ErrPermission}
	perr := &ProcessError{Kind: KindSpawn, Label: "Tokyo", Err: os.ErrNotExist}

	tests := []struct {
		name   string
		err    error
		target error
		msg    string
	}{
		{"validation", verr, ErrValidation, "invalid selected 3: out of range"},
		{"io", ioerr, ErrIO, "write state /tmp/state.yaml"},
		{"io wraps cause", ioerr, os.ErrPermission, "permission denied"},
		{"process", perr, ErrProcess, `client spawn failed for "Tokyo"`},
		{"process wraps cause", perr, os.ErrNotExist, "file does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
			if !strings.Contains(tt.err.Error(), tt.msg) {
				t.Errorf("Error() = %q, want to contain %q", tt.err.Error(), tt.msg)
			}
		})
	}

	if errors.Is(verr, ErrIO) || errors.Is(ioerr, ErrProcess) || errors.Is(perr, ErrValidation) {
		t.Error("taxonomy roots must not overlap")
	}
}

func TestProcessErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ProcessErrorKind
		expected string
	}{
		{KindSpawn, "spawn"},
		{KindExit, "exit"},
		{KindTerminate, "terminate"},
		{ProcessErrorKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ProcessErrorKind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestProcessError_Details(t *testing.T) {
	perr := &ProcessError{Kind: KindExit, Err: ErrUnexpectedEnd, Output: []string{"bind: address already in use"}}

	details := perr.Details()
	if !strings.Contains(details, "address already in use") {
		t.Errorf("Details() = %q, want client output", details)
	}

	perr.Output = nil
	if perr.Details() != perr.Error() {
		t.Error("Details() without output should equal Error()")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.yaml")

	if err := WriteFileAtomic(path, []byte("first"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", string(data), "second")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "nested", "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestPrepareDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	if err := PrepareDataDir(dir); err != nil {
		t.Fatalf("PrepareDataDir() error = %v", err)
	}
	if !FileExists(dir) {
		t.Error("PrepareDataDir() should create the directory")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("PrepareDataDir() left files behind: %v", entries)
	}
}

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if len(id1) != 36 {
		t.Errorf("GenerateID() length = %v, want 36", len(id1))
	}

	if id1 == id2 {
		t.Error("GenerateID() should return unique IDs")
	}
}
