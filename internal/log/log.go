// Package log предоставляет структурированный логгер на основе zap.
package log

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger описывает логгер, которым пользуются сервисы и обработчики.
type Logger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	Named(name string) Logger
}

// Log реализует Logger поверх zap.SugaredLogger.
type Log struct {
	zapLogger *zap.SugaredLogger
}

var _ Logger = (*Log)(nil)

// NewProductionLogger создает консольный логгер с указанным уровнем (debug, info, warn, error).
func NewProductionLogger(level string) (*Log, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format(time.DateTime))
	}
	cfg.Level.SetLevel(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewLogger(logger.Sugar()), nil
}

// NewLogger оборачивает готовый zap-логгер.
func NewLogger(zapLogger *zap.SugaredLogger) *Log {
	return &Log{zapLogger: zapLogger}
}

// NewNopLogger возвращает логгер, который ничего не пишет (для тестов).
func NewNopLogger() *Log {
	return NewLogger(zap.NewNop().Sugar())
}

func (l *Log) Debugw(msg string, keysAndValues ...any) {
	l.zapLogger.Debugw(msg, keysAndValues...)
}

func (l *Log) Infow(msg string, keysAndValues ...any) {
	l.zapLogger.Infow(msg, keysAndValues...)
}

func (l *Log) Warnw(msg string, keysAndValues ...any) {
	l.zapLogger.Warnw(msg, keysAndValues...)
}

func (l *Log) Errorw(msg string, keysAndValues ...any) {
	l.zapLogger.Errorw(msg, keysAndValues...)
}

func (l *Log) Named(name string) Logger {
	return NewLogger(l.zapLogger.Named(name))
}

// Sync сбрасывает буферы zap, вызывается при завершении процесса.
func (l *Log) Sync() error {
	return l.zapLogger.Sync()
}
