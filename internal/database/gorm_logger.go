package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campus/internal/middleware"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger sends GORM output to the application slog logger so SQL lines
// carry the request and trace ids.
type queryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

func newQueryLogger(level logger.LogLevel) *queryLogger {
	return &queryLogger{log: middleware.Logger, level: level, slow: slowQueryThreshold}
}

func (l *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *queryLogger) emit(ctx context.Context, at logger.LogLevel, level slog.Level, msg string, data []any) {
	if l.level >= at {
		l.log.Log(ctx, level, fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...any) {
	l.emit(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.emit(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...any) {
	l.emit(ctx, logger.Error, slog.LevelError, msg, data)
}

// expectedErr covers errors the repositories translate into domain results.
func expectedErr(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !expectedErr(err) && l.level >= logger.Error:
		l.log.ErrorContext(ctx, "query failed", append(attrs, slog.String("error", err.Error()))...)
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		l.log.WarnContext(ctx, "slow query", attrs...)
	case l.level >= logger.Info:
		l.log.DebugContext(ctx, "query", attrs...)
	}
}
