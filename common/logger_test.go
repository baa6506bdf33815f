package common

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.name); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestAppLogger_LogFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := &AppLogger{level: LevelWarn, console: &buf}

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() > 0 {
		t.Error("Debug/Info messages should be filtered when level is Warn")
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Error("Warn message should be logged")
	}

	buf.Reset()
	logger.SetLevel(LevelError)
	logger.Warn("dropped")
	logger.Error("error message")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("unexpected output after SetLevel: %q", buf.String())
	}
}

func TestAppLogger_LogFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := &AppLogger{level: LevelDebug, console: &buf}

	logger.Info("Test message with %s", "formatting")
	logger.Info("100% literal")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	first := lines[0]
	if !strings.HasPrefix(first, time.Now().Format("2006/01/02")) {
		t.Errorf("line should start with the date: %q", first)
	}
	if !strings.Contains(first, "[INFO] logger_test.go:") {
		t.Errorf("line should carry level and caller: %q", first)
	}
	if !strings.HasSuffix(first, ": Test message with formatting") {
		t.Errorf("line should end with the message: %q", first)
	}
	if !strings.HasSuffix(lines[1], ": 100% literal") {
		t.Errorf("messages without args are not formatted: %q", lines[1])
	}
}

func TestLogInfo_ReportsCallSite(t *testing.T) {
	var buf bytes.Buffer
	logger := GetLogger()
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	LogWarn("from %s", "shorthand")

	if !strings.Contains(buf.String(), "[WARN] logger_test.go:") {
		t.Errorf("caller should be the test file: %q", buf.String())
	}
}

func TestAppLogger_DiscardConsole(t *testing.T) {
	dir := t.TempDir()
	logger := &AppLogger{level: LevelInfo}
	logger.SetOutput(io.Discard)

	if err := logger.EnableFileLogging(dir); err != nil {
		t.Fatalf("EnableFileLogging() error = %v", err)
	}
	logger.Info("only in file")
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "only in file") {
		t.Errorf("log file content = %q", string(data))
	}
}

func TestEnableFileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer
	logger := &AppLogger{
		level:       LevelInfo,
		console:     &console,
		maxFileSize: defaultMaxFileSize,
		maxBackups:  defaultMaxBackups,
	}

	if err := logger.EnableFileLogging(dir); err != nil {
		t.Fatalf("EnableFileLogging() error = %v", err)
	}
	defer logger.Close()

	logger.Info("written to %s", "file")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content = %q, want message", string(data))
	}
	if !strings.Contains(console.String(), "written to file") {
		t.Error("console should receive the line too")
	}

	if err := logger.EnableFileLogging(""); err == nil {
		t.Error("EnableFileLogging(\"\") should fail")
	}
}

func TestEnableFileLogging_RefusesSymlink(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	if err := os.Mkdir(target, 0700); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	logger := &AppLogger{level: LevelInfo, console: io.Discard}
	if err := logger.EnableFileLogging(link); err == nil {
		logger.Close()
		t.Error("symlinked log directory should be refused")
	}
}

func TestRotatingFile_RotatesOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	r, err := openRotatingFile(path, 100, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	chunk := []byte(strings.Repeat("x", 59) + "\n")
	for i := 0; i < 5; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("current file size = %d, want %d", info.Size(), len(chunk))
	}

	backups, _ := filepath.Glob(path + ".*.gz")
	if len(backups) != 2 {
		t.Fatalf("got %d backups, want 2: %v", len(backups), backups)
	}

	sort.Strings(backups)
	if got := readGzip(t, backups[1]); got != string(chunk) {
		t.Errorf("newest backup = %q, want one chunk", got)
	}
}

func TestOpenRotatingFile_ArchivesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	old := strings.Repeat("y", 200)
	if err := os.WriteFile(path, []byte(old), 0600); err != nil {
		t.Fatal(err)
	}

	r, err := openRotatingFile(path, 100, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if r.size != 0 {
		t.Errorf("size after open = %d, want 0", r.size)
	}
	backups, _ := filepath.Glob(path + ".*.gz")
	if len(backups) != 1 {
		t.Fatalf("got %d backups, want 1", len(backups))
	}
	if got := readGzip(t, backups[0]); got != old {
		t.Error("backup should hold the previous content")
	}
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	r, err := openRotatingFile(filepath.Join(t.TempDir(), "test.log"), 100, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Write([]byte("late")); err == nil {
		t.Error("write after close should fail")
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
