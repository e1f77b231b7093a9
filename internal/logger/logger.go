package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"camvault/internal/config"
)

// Log levels that have their own file in the log directory.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Logger provides leveled logging (info/warning/error) to per-level files and stdout.
type Logger struct {
	zl     zerolog.Logger
	logDir string
	files  []*os.File
	mu     *sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	l := &Logger{logDir: cfg.LogDirectory, mu: &sync.Mutex{}}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}}
	for _, lf := range []struct {
		name     string
		min, max zerolog.Level
	}{
		{LevelInfo, zerolog.InfoLevel, zerolog.InfoLevel},
		{LevelWarning, zerolog.WarnLevel, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel, zerolog.PanicLevel},
	} {
		file, err := l.openLogFile(lf.name + ".log")
		if err != nil {
			l.Close()
			return nil, err
		}
		writers = append(writers, &levelFilter{w: file, min: lf.min, max: lf.max})
	}

	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return l, nil
}

// New wraps an existing zerolog logger. It has no log directory, so CleanLogs is a no-op.
func New(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl, mu: &sync.Mutex{}}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(zerolog.Nop())
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filepath.Join(l.logDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// Zerolog exposes the structured logger for callers that attach fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{
		zl:     l.zl.With().Str("component", name).Logger(),
		logDir: l.logDir,
		mu:     l.mu,
	}
}

// Dir returns the log directory, or "" for loggers without files.
func (l *Logger) Dir() string {
	return l.logDir
}

// FilePath returns the path of the file holding entries of the given level.
func (l *Logger) FilePath(level string) (string, error) {
	switch level {
	case LevelInfo, LevelWarning, LevelError:
	default:
		return "", fmt.Errorf("unknown log level %q", level)
	}
	if l.logDir == "" {
		return "", fmt.Errorf("logger has no log directory")
	}
	return filepath.Join(l.logDir, level+".log"), nil
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil {
		l.Error("Error truncating log file %s: %v", fileName, err)
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}

	l.Info("File content of %s has been cleared.", fileName)
	return nil
}

// Close releases the log files.
func (l *Logger) Close() error {
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

// levelFilter forwards only entries whose level falls within [min, max].
type levelFilter struct {
	w        io.Writer
	min, max zerolog.Level
}

func (f *levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min || level > f.max {
		return len(p), nil
	}
	return f.w.Write(p)
}
