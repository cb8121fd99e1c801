package logger

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's query log through the context logger, so
// repository calls made with a tagged ctx carry player/round fields.
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

var gormLevels = map[string]gormlogger.LogLevel{
	"debug":  gormlogger.Info,
	"info":   gormlogger.Info,
	"warn":   gormlogger.Warn,
	"error":  gormlogger.Error,
	"silent": gormlogger.Silent,
}

// NewGormLogger creates a GormLogger at the given level ("info" logs every
// query, "warn" only slow ones and errors, "silent" nothing). Unknown
// levels mean "warn".
func NewGormLogger(level string) *GormLogger {
	lvl, ok := gormLevels[level]
	if !ok {
		lvl = gormlogger.Warn
	}
	return &GormLogger{SlowThreshold: 200 * time.Millisecond, LogLevel: lvl}
}

// LogMode sets the log level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		Info(ctx).Msgf(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		Warn(ctx).Msgf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		Error(ctx).Msgf(msg, data...)
	}
}

// Trace logs sql queries
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var event *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		if l.LogLevel >= gormlogger.Error {
			event = Error(ctx).Err(err)
		}
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold:
		if l.LogLevel >= gormlogger.Warn {
			event = Warn(ctx).Bool("slow_query", true)
		}
	default:
		if l.LogLevel >= gormlogger.Info {
			event = Debug(ctx)
		}
	}

	if event == nil {
		return
	}
	sql, rows := fc()
	event.
		Str("sql", sql).
		Float64("elapsed_ms", float64(elapsed.Nanoseconds())/1e6).
		Int64("rows", rows).
		Msg("sql")
}
