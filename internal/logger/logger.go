// Package logger provides process-wide logging for rfpkb.
//
// Debug, Info, Section and Warn print to stderr only in verbose mode.
// Error always prints. When a log file is attached with SetFile, every
// Info, Warn and Error entry (and Debug entries in verbose mode) is also
// written as JSON to a size-rotated file.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	file    *zap.Logger
	rotator *lumberjack.Logger
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetFile attaches a rotating JSON log file. An empty path detaches the
// current file. maxSizeMB <= 0 uses lumberjack's default.
func SetFile(path string, maxSizeMB int) error {
	mu.Lock()
	defer mu.Unlock()

	if err := closeFileLocked(); err != nil {
		return err
	}
	if path == "" {
		return nil
	}

	rotator = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: 3,
	}
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "time"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoder),
		zapcore.AddSync(rotator),
		zap.DebugLevel,
	)
	file = zap.New(core)
	return nil
}

// Close flushes and detaches the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeFileLocked()
}

func closeFileLocked() error {
	if file == nil {
		return nil
	}
	_ = file.Sync()
	err := rotator.Close()
	file = nil
	rotator = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
		writeFile(zapcore.DebugLevel, format, args)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
	writeFile(zapcore.InfoLevel, format, args)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
	}
	writeFile(zapcore.WarnLevel, format, args)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(output, "[ERROR] "+format+"\n", args...)
	writeFile(zapcore.ErrorLevel, format, args)
}

// writeFile must be called with mu held.
func writeFile(level zapcore.Level, format string, args []any) {
	if file == nil {
		return
	}
	if ce := file.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}
