package database

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// GormLogger routes GORM output through slog.
type GormLogger struct {
	SlowThreshold           time.Duration
	IgnoreErrRecordNotFound bool
	Debug                   bool
	Silent                  bool
}

func NewLogger(slowThreshold time.Duration, debug bool) *GormLogger {
	return &GormLogger{
		SlowThreshold:           slowThreshold,
		IgnoreErrRecordNotFound: true,
		Debug:                   debug,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.Silent = level == logger.Silent
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if !l.Silent {
		slog.InfoContext(ctx, "gorm: "+msg, args...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if !l.Silent {
		slog.WarnContext(ctx, "gorm: "+msg, args...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if !l.Silent {
		slog.ErrorContext(ctx, "gorm: "+msg, args...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{"sql", sql, "rows", rows, "duration", elapsed, "src", utils.FileWithLineNum()}

	switch {
	case err != nil && !(l.IgnoreErrRecordNotFound && errors.Is(err, gorm.ErrRecordNotFound)):
		slog.ErrorContext(ctx, "gorm query failed", append(attrs, "error", err)...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		slog.WarnContext(ctx, "gorm slow query", attrs...)
	case l.Debug:
		slog.DebugContext(ctx, "gorm query", attrs...)
	}
}
