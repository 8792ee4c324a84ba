package log

import (
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap implements the Logger interface with zap as the underlying logging
// library. Message formatting is skipped when the corresponding level is
// disabled.
type Zap struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
	level  Level
}

// enforce compilation error when the interface is not satisfied
var _ Logger = (*Zap)(nil)

// NewZap creates a Zap logger writing to the given writers at the given
// minimum level.
func NewZap(level Level, writers ...io.Writer) *Zap {
	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, w := range writers {
		syncers = append(syncers, zapcore.AddSync(w))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(syncers...),
		toZapLevel(level),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Zap{
		logger: zapLogger,
		sugar:  zapLogger.Sugar(),
		level:  level,
	}
}

// Debug starts a message with debug level.
func (z *Zap) Debug(v ...any) { z.sugar.Debug(v...) }

// Debugf starts a message with debug level.
func (z *Zap) Debugf(format string, v ...any) { z.sugar.Debugf(format, v...) }

// Info starts a message with info level.
func (z *Zap) Info(v ...any) { z.sugar.Info(v...) }

// Infof starts a message with info level.
func (z *Zap) Infof(format string, v ...any) { z.sugar.Infof(format, v...) }

// Warn starts a message with warn level.
func (z *Zap) Warn(v ...any) { z.sugar.Warn(v...) }

// Warnf starts a message with warn level.
func (z *Zap) Warnf(format string, v ...any) { z.sugar.Warnf(format, v...) }

// Error starts a message with error level.
func (z *Zap) Error(v ...any) { z.sugar.Error(v...) }

// Errorf starts a message with error level.
func (z *Zap) Errorf(format string, v ...any) { z.sugar.Errorf(format, v...) }

// LogLevel returns the log level being used.
func (z *Zap) LogLevel() Level { return z.level }

// Flush drains any buffered log entries. Call it during graceful shutdown.
func (z *Zap) Flush() error {
	return multierr.Combine(z.logger.Sync(), z.sugar.Sync())
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarningLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
