package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines logging severities.
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case TRACE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a case-insensitive name to a level; unknown names map to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Options controls where new loggers write.
type Options struct {
	Dir          string
	ConsoleLevel LogLevel
	FileLevel    LogLevel
}

func init() {
	// Thresholds are applied per sink in Logger.log.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

var (
	optionsMu sync.RWMutex
	options   = Options{Dir: "logs", ConsoleLevel: INFO, FileLevel: DEBUG}
)

// Configure sets the options used by loggers created afterwards.
func Configure(opts Options) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	options = opts
}

func currentOptions() Options {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}

// Logger writes to the console and, when a log directory is configured, to
// a per-component file. Each sink has its own minimum level.
type Logger struct {
	component       string
	consoleLogger   zerolog.Logger
	fileLogger      *zerolog.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// NewLogger creates a component logger using the configured options.
func NewLogger(component string) (*Logger, error) {
	opts := currentOptions()
	logger := NewConsoleLogger(component, os.Stdout, opts.ConsoleLevel)
	if opts.Dir == "" {
		return logger, nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	fileLogger := zerolog.New(file).With().Timestamp().Str("component", component).Logger()
	logger.fileLogger = &fileLogger
	logger.file = file
	logger.minFileLevel = opts.FileLevel
	return logger, nil
}

// NewConsoleLogger creates a logger with a single human-readable sink.
func NewConsoleLogger(component string, w io.Writer, level LogLevel) *Logger {
	console := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stdout}).
		With().Timestamp().Str("component", component).Logger()
	return &Logger{
		component:       component,
		consoleLogger:   console,
		minConsoleLevel: level,
		minFileLevel:    ERROR + 1,
	}
}

// Close releases the file sink.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	message := fmt.Sprintf(format, args...)
	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.WithLevel(level.zerolog()).Msg(message)
	}
	if level >= l.minConsoleLevel {
		l.consoleLogger.WithLevel(level.zerolog()).Msg(message)
	}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewConsoleLogger("app", os.Stdout, INFO)
)

// InitDefaultLogger replaces the package-level logger with a component
// logger built from the current options.
func InitDefaultLogger(component string) error {
	logger, err := NewLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	return nil
}

// SetDefaultLogger installs logger as the package-level logger.
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// CloseDefaultLogger closes the package-level logger's file sink.
func CloseDefaultLogger() {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	_ = defaultLogger.Close()
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Trace(format string, args ...interface{}) { current().log(TRACE, format, args...) }
func Debug(format string, args ...interface{}) { current().log(DEBUG, format, args...) }
func Info(format string, args ...interface{})  { current().log(INFO, format, args...) }
func Warn(format string, args ...interface{})  { current().log(WARN, format, args...) }
func Error(format string, args ...interface{}) { current().log(ERROR, format, args...) }
