// Package logging provides the shared slog setup for codegraph commands.
// A Manager starts in bootstrap mode (text to stderr) and is upgraded to
// full mode (stderr text + rotating JSON file) once configuration loads.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions controls the rotating file sink enabled by Upgrade.
type FileOptions struct {
	// Path is the log file location. Parent directories are created.
	Path string

	// Level is the minimum level for all sinks.
	Level slog.Level

	// MaxSizeMB is the size at which the file rotates. Zero means 100.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to retain. Zero keeps all.
	MaxBackups int

	// MaxAgeDays is the retention age for rotated files. Zero keeps all.
	MaxAgeDays int

	// Compress gzips rotated files when true.
	Compress bool
}

// Manager handles logger lifecycle including the bootstrap-to-full transition.
// Components obtain a logger via Logger() and keep it; the handler underneath
// is swapped atomically on Upgrade, so held references stay valid.
type Manager struct {
	handler *SwappableHandler
	logger  *slog.Logger
	sink    io.Closer
	level   *slog.LevelVar
	mu      sync.Mutex
}

// NewManager creates a logging manager in bootstrap mode.
func NewManager() *Manager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	opts := &slog.HandlerOptions{Level: level}
	bootstrap := slog.NewTextHandler(os.Stderr, opts)

	handler := NewSwappableHandler(bootstrap)

	return &Manager{
		handler: handler,
		logger:  slog.New(handler),
		level:   level,
	}
}

// Logger returns the current logger instance.
// The returned logger is stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade transitions from bootstrap mode to full mode: text to stderr plus
// JSON to a rotating file. Call after the config subsystem is initialized.
func (m *Manager) Upgrade(fileOpts FileOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(fileOpts.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q; %w", dir, err)
	}

	maxSize := fileOpts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	rotator := &lumberjack.Logger{
		Filename:   fileOpts.Path,
		MaxSize:    maxSize,
		MaxBackups: fileOpts.MaxBackups,
		MaxAge:     fileOpts.MaxAgeDays,
		Compress:   fileOpts.Compress,
	}

	if m.sink != nil {
		_ = m.sink.Close()
	}
	m.sink = rotator

	m.level.Set(fileOpts.Level)

	opts := &slog.HandlerOptions{Level: m.level}

	full := slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewJSONHandler(rotator, opts),
	)

	m.handler.Swap(full)

	return nil
}

// SetLevel changes the log level at runtime.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Close shuts down the logger, closing the file sink if one is open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sink != nil {
		err := m.sink.Close()
		m.sink = nil
		return err
	}
	return nil
}
