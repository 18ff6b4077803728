// Package logger provides opinionated logging capabilities for chatbox
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger writing to w. A nil writer logs to stdout.
func NewLogger(debug bool, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stdout
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if w == os.Stdout || w == os.Stderr {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller())
}

// NewFileLogger returns a logger appending to the file at path, creating parent
// directories as needed. Interactive frontends use it so that log lines never
// land on the terminal they draw on. The returned close func flushes and
// closes the file.
func NewFileLogger(debug bool, path string) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file %s: %w", path, err)
	}

	l := NewLogger(debug, f)
	closer := func() error {
		_ = l.Sync()
		return f.Close()
	}

	return l, closer, nil
}
