package main

import (
	"go.uber.org/zap"

	"github.com/parkside-labs/accounts"
)

// zapLogger adapts a zap sugared logger to the accounts.Logger surface.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ accounts.Logger = (*zapLogger)(nil)

func newZapLogger(base *zap.Logger, name string) *zapLogger {
	return &zapLogger{s: base.Named(name).Sugar()}
}

func (l *zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
func (l *zapLogger) Fatal(msg string, args ...any) { l.s.Fatalw(msg, args...) }
