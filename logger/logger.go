package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level defines the log level
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stderr
	format           = "console"
	level            = InfoLevel
	logger           = build()
)

// build 根据当前输出、格式和级别创建 zerolog 实例，调用方需持有写锁或处于初始化阶段
func build() zerolog.Logger {
	w := out
	if format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.DateTime,
			NoColor:    true,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ParseLevel converts a level name into a Level.  Unknown names map to
// InfoLevel.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// SetLevel sets the global log level
func SetLevel(levelStr string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(levelStr)
	logger = build()
}

// SetFormat sets the output format, "console" or "json"
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()

	if f != "json" {
		f = "console"
	}
	format = f
	logger = build()
}

// SetOutput sets the output destination for the logger
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	out = w
	logger = build()
}

// current returns the active logger.
func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	l := logger

	return &l
}

// Debug logs a message at DebugLevel
func Debug(v ...any) {
	current().Debug().Msg(fmt.Sprint(v...))
}

// Debugf logs a formatted message at DebugLevel
func Debugf(format string, v ...any) {
	current().Debug().Msgf(format, v...)
}

// Info logs a message at InfoLevel
func Info(v ...any) {
	current().Info().Msg(fmt.Sprint(v...))
}

// Infof logs a formatted message at InfoLevel
func Infof(format string, v ...any) {
	current().Info().Msgf(format, v...)
}

// Warn logs a message at WarnLevel
func Warn(v ...any) {
	current().Warn().Msg(fmt.Sprint(v...))
}

// Warnf logs a formatted message at WarnLevel
func Warnf(format string, v ...any) {
	current().Warn().Msgf(format, v...)
}

// Error logs a message at ErrorLevel
func Error(v ...any) {
	current().Error().Msg(fmt.Sprint(v...))
}

// Errorf logs a formatted message at ErrorLevel
func Errorf(format string, v ...any) {
	current().Error().Msgf(format, v...)
}

// Fatal logs a message at FatalLevel and exits
func Fatal(v ...any) {
	current().Fatal().Msg(fmt.Sprint(v...))
}

// Fatalf logs a formatted message at FatalLevel and exits
func Fatalf(format string, v ...any) {
	current().Fatal().Msgf(format, v...)
}
