// internal/utils/logger/logger.go
package logger

import (
	"errors"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps the process zap.Logger together with its file sink.
type Logger struct {
	*zap.Logger
	level  zap.AtomicLevel
	rotate *lumberjack.Logger
}

// New builds a console logger, teed into a rotated JSON file when cfg.LogFile is set.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	if cfg.Development {
		l.level.SetLevel(zapcore.DebugLevel)
	}

	enc := encoderConfig(cfg.Development)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), l.level),
	}
	if cfg.LogFile != "" {
		l.rotate = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(l.rotate), l.level))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return l, nil
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	if development {
		enc = zap.NewDevelopmentEncoderConfig()
	}
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	return enc
}

// SetDebug switches both sinks between debug and info.
func (l *Logger) SetDebug(on bool) {
	if on {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	l.level.SetLevel(zapcore.InfoLevel)
}

// TrackPerformance logs how long an operation took. Call the returned func when it ends.
func (l *Logger) TrackPerformance(operation string) (end func()) {
	start := time.Now()
	op := l.With(zap.String("operation", operation))
	op.Debug("Starting operation")

	return func() {
		elapsed := time.Since(start)
		op.Info("Operation completed",
			zap.Duration("duration", elapsed),
			zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000))
	}
}

// Sync flushes buffered entries. Terminals reject fsync on stdout; that is not an error.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// Close syncs and releases the log file.
func (l *Logger) Close() error {
	err := l.Sync()
	if l.rotate != nil {
		err = errors.Join(err, l.rotate.Close())
	}
	return err
}
