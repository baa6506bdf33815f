// Package common provides shared constants, types, and utilities
// used across the Proxy Tray application.
package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name to a LogLevel, defaulting to info.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// AppLogger is the levelled application logger. Lines go to the console
// and, once file logging is enabled, to a log file that rotates itself by
// size.
type AppLogger struct {
	mu          sync.Mutex
	level       LogLevel
	console     io.Writer
	file        *rotatingFile
	maxFileSize int64
	maxBackups  int
}

// LogConfig holds configuration options for the logger.
type LogConfig struct {
	Level       LogLevel
	EnableFile  bool
	Dir         string    // log directory, required when EnableFile is set
	MaxFileSize int64     // in bytes, default 5MB
	MaxBackups  int       // number of rotated files to keep, default 5
	Console     io.Writer // console output, default os.Stdout
}

var (
	defaultLogger *AppLogger
	loggerOnce    sync.Once
)

const (
	defaultMaxFileSize = 5 * 1024 * 1024 // 5MB
	defaultMaxBackups  = 5
)

// GetLogger returns the process-wide logger.
func GetLogger() *AppLogger {
	loggerOnce.Do(func() {
		defaultLogger = &AppLogger{
			level:       LevelInfo,
			console:     os.Stdout,
			maxFileSize: defaultMaxFileSize,
			maxBackups:  defaultMaxBackups,
		}
	})
	return defaultLogger
}

// InitLogger applies config to the process-wide logger. Call it once at
// startup before the first log line matters.
func InitLogger(config LogConfig) error {
	logger := GetLogger()
	logger.SetLevel(config.Level)

	logger.mu.Lock()
	if config.MaxFileSize > 0 {
		logger.maxFileSize = config.MaxFileSize
	}
	if config.MaxBackups > 0 {
		logger.maxBackups = config.MaxBackups
	}
	logger.mu.Unlock()

	if config.Console != nil {
		logger.SetOutput(config.Console)
	}
	if config.EnableFile {
		return logger.EnableFileLogging(config.Dir)
	}
	return nil
}

// LogDir returns the log directory below the application-data root.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// SetLevel sets the minimum log level.
func (l *AppLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the console destination. io.Discard keeps only the file.
func (l *AppLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.console = w
}

// EnableFileLogging opens LogFileName in logDir in addition to the console.
func (l *AppLogger) EnableFileLogging(logDir string) error {
	if logDir == "" {
		return fmt.Errorf("log directory not set")
	}

	// Security: refuse symlinked locations
	if isSymlink(logDir) {
		return fmt.Errorf("security error: log directory is a symlink")
	}
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}
	logPath := filepath.Join(logDir, LogFileName)
	if isSymlink(logPath) {
		return fmt.Errorf("security error: log file is a symlink")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	maxSize, maxBackups := l.maxFileSize, l.maxBackups
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	file, err := openRotatingFile(logPath, maxSize, maxBackups)
	if err != nil {
		return err
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	return nil
}

// isSymlink reports whether path exists and is a symbolic link.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}

// log writes one line. It must be called directly from an exported
// logging function so that runtime.Caller(2) is the call site.
func (l *AppLogger) log(level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	threshold := l.level
	l.mu.Unlock()
	if level < threshold {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	caller := "???"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf(msg, args...)
	}
	entry := fmt.Sprintf("%s [%s] %s: %s\n",
		time.Now().Format("2006/01/02 15:04:05"), level, caller, text)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.console != nil {
		io.WriteString(l.console, entry)
	}
	if l.file != nil {
		if _, err := l.file.Write([]byte(entry)); err != nil && l.console != nil {
			fmt.Fprintf(l.console, "log file write failed: %v\n", err)
		}
	}
}

func (l *AppLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *AppLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *AppLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *AppLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Close releases the log file; console logging continues.
func (l *AppLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// LogDebug, LogInfo, LogWarn and LogError write to the process-wide logger.
func LogDebug(msg string, args ...any) { GetLogger().log(LevelDebug, msg, args...) }
func LogInfo(msg string, args ...any)  { GetLogger().log(LevelInfo, msg, args...) }
func LogWarn(msg string, args ...any)  { GetLogger().log(LevelWarn, msg, args...) }
func LogError(msg string, args ...any) { GetLogger().log(LevelError, msg, args...) }

// CloseLogger closes the default logger.
func CloseLogger() error {
	return GetLogger().Close()
}
