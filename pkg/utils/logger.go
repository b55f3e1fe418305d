package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func InitLogger(path string, debug bool) (*zap.Logger, error) {
	// Buat folder log jika belum ada
	if path != "" {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.CallerKey = "caller"
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if debug {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	logLevel := zap.InfoLevel
	if debug {
		logLevel = zap.DebugLevel
	}

	// File sink dengan rotasi log
	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path + "flight-booking.log",
		MaxSize:    10, // MB
		MaxBackups: 7,
		MaxAge:     28, // days
		Compress:   true,
	})

	// Operator alerts get their own file so on-call tooling can tail it
	operatorWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path + "operator.log",
		MaxSize:    10,
		MaxBackups: 30,
		MaxAge:     90,
		Compress:   true,
	})

	consoleWriter := zapcore.AddSync(os.Stdout)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, fileWriter, logLevel),
		zapcore.NewCore(encoder, consoleWriter, logLevel),
		newOperatorCore(zapcore.NewJSONEncoder(encoderConfig), operatorWriter),
	)

	return zap.New(core, zap.AddCaller()), nil
}

// OperatorLogger returns the child logger used for ledger divergence alerts.
// Entries written through it are duplicated into operator.log.
func OperatorLogger(log *zap.Logger) *zap.Logger {
	return log.Named(OperatorLoggerName).With(zap.Bool("inconsistency", true))
}

const OperatorLoggerName = "operator"

// operatorCore only accepts entries from the operator logger.
type operatorCore struct {
	zapcore.Core
}

func newOperatorCore(enc zapcore.Encoder, ws zapcore.WriteSyncer) zapcore.Core {
	return &operatorCore{Core: zapcore.NewCore(enc, ws, zap.WarnLevel)}
}

func (c *operatorCore) With(fields []zapcore.Field) zapcore.Core {
	return &operatorCore{Core: c.Core.With(fields)}
}

func (c *operatorCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.LoggerName != OperatorLoggerName && !strings.HasSuffix(ent.LoggerName, "."+OperatorLoggerName) {
		return ce
	}
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
