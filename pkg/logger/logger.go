// Package logger wraps zerolog with context-carried loggers for the
// roulette server. Request, session, player and round ids travel in the
// context and are attached to every line written through it.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LoggerKey is the context key for logger
	LoggerKey contextKey = "logger"
)

var (
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	globalWriter *SmartWriter
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error, disabled
	Format string // json, console
	Output io.Writer
}

// InitWithFile logs to a rotating file and, when enableConsole is set, to
// stdout as well.
func InitWithFile(filename string, level string, format string, enableConsole bool) {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		panic(err)
	}

	var output io.Writer = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	if enableConsole {
		output = io.MultiWriter(os.Stdout, output)
	}

	Init(Config{Level: level, Format: format, Output: output})
}

// Init replaces the global logger. Output is buffered by a SmartWriter
// that flushes every second and immediately on error or fatal lines.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.CallerMarshalFunc = shortCaller

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if globalWriter != nil {
		_ = globalWriter.Close()
	}
	globalWriter = NewSmartWriter(output, time.Second)
	output = globalWriter

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-5s", i))
			},
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				zerolog.CallerFieldName,
				zerolog.MessageFieldName,
			},
		}
	}
	globalLogger = zerolog.New(output).With().Timestamp().Caller().Logger()
}

// shortCaller keeps the last directory and the file, e.g. machine/coordinator.go:42.
func shortCaller(_ uintptr, file string, line int) string {
	if i := strings.LastIndexByte(file, '/'); i > 0 {
		if j := strings.LastIndexByte(file[:i], '/'); j >= 0 {
			file = file[j+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// Flush forces all buffered logs to be written to the underlying writer
func Flush() {
	if globalWriter != nil {
		_ = globalWriter.Sync()
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// withField returns ctx carrying a child of its logger with key=value.
func withField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return context.WithValue(ctx, LoggerKey, &logger)
}

// WithRequestID starts a request-scoped logger. It replaces any logger
// already in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	logger := globalLogger.With().Str("request_id", requestID).Logger()
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, &logger)
}

// WithSession tags lines with the WebSocket connection id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return withField(ctx, "session_id", sessionID)
}

// WithPlayer tags lines with the player id.
func WithPlayer(ctx context.Context, playerID string) context.Context {
	return withField(ctx, "player_id", playerID)
}

// WithRound tags lines with the round id.
func WithRound(ctx context.Context, roundID string) context.Context {
	return withField(ctx, "round_id", roundID)
}

// WithFields adds arbitrary fields to the context logger
func WithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	logger := FromContext(ctx).With().Fields(fields).Logger()
	return context.WithValue(ctx, LoggerKey, &logger)
}

// FromContext returns the logger carried by ctx, or the global one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if logger, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return &globalLogger
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func Debug(ctx context.Context) *zerolog.Event { return FromContext(ctx).Debug() }
func Info(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Info() }
func Warn(ctx context.Context) *zerolog.Event  { return FromContext(ctx).Warn() }
func Error(ctx context.Context) *zerolog.Event { return FromContext(ctx).Error() }

// Global logger methods, for code paths without a context (bootstrap and
// worker goroutines).

func InfoGlobal() *zerolog.Event  { return globalLogger.Info() }
func WarnGlobal() *zerolog.Event  { return globalLogger.Warn() }
func ErrorGlobal() *zerolog.Event { return globalLogger.Error() }

// FatalGlobal logs and exits the process
func FatalGlobal() *zerolog.Event { return globalLogger.Fatal() }
