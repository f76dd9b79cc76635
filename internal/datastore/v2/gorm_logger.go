package v2

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/glucoalert/alertcore/internal/errors"
	"github.com/glucoalert/alertcore/internal/logger"
)

// slowQueryThreshold marks statements logged at warn level.
const slowQueryThreshold = 200 * time.Millisecond

// gormLogger forwards gorm's logging to a logger.Logger.
type gormLogger struct {
	log   logger.Logger
	level gorm_logger.LogLevel
}

// NewGormLogger adapts log for gorm. With debug set every statement is logged.
func NewGormLogger(log logger.Logger, debug bool) gorm_logger.Interface {
	level := gorm_logger.Warn
	if debug {
		level = gorm_logger.Info
	}
	return &gormLogger{log: log.Module("gorm"), level: level}
}

func (l *gormLogger) LogMode(level gorm_logger.LogLevel) gorm_logger.Interface {
	return &gormLogger{log: l.log, level: level}
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gorm_logger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gorm_logger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gorm_logger.Error {
		l.log.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gorm_logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gorm_logger.Error:
		sql, rows := fc()
		fields := []logger.Field{
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		}
		// Constraint violations are surfaced to callers as domain errors.
		if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			l.log.Warn("query rejected by constraint", fields...)
			return
		}
		l.log.Error("query failed", fields...)
	case elapsed > slowQueryThreshold && l.level >= gorm_logger.Warn:
		sql, rows := fc()
		l.log.Warn("slow query",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed))
	case l.level >= gorm_logger.Info:
		sql, rows := fc()
		l.log.Debug("query",
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.Duration("elapsed", elapsed))
	}
}
