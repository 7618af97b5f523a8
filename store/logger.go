package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// gormLogger routes gorm's query log into logrus.
type gormLogger struct {
	log   logrus.FieldLogger
	level gormlogger.LogLevel
}

func newGormLogger(log logrus.FieldLogger) gormlogger.Interface {
	return &gormLogger{log: log.WithField("component", "gorm"), level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLogger{log: l.log, level: level}
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logrus.Fields{"sql": sql, "rows": rows, "duration": elapsed}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.log.WithFields(fields).WithError(err).Error("query failed")
	case elapsed > slowQuery:
		l.log.WithFields(fields).Warn("slow query")
	case l.level >= gormlogger.Info:
		l.log.WithFields(fields).Debug("query")
	}
}
