package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger writing JSON to a rotated file and human-readable
// lines to stdout. An empty filePath disables the file output.
func New(level, filePath string) *zap.Logger {
	lvl := ParseLevel(level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		lvl,
	)
	if filePath == "" {
		return zap.New(consoleCore, zap.AddCaller())
	}

	core := zapcore.NewTee(fileCore(filePath, lvl), consoleCore)
	return zap.New(core, zap.AddCaller())
}

// NewFileOnly logs to the rotated file only. Used by the terminal client,
// where console output would corrupt the screen.
func NewFileOnly(level, filePath string) *zap.Logger {
	if filePath == "" {
		return zap.NewNop()
	}
	return zap.New(fileCore(filePath, ParseLevel(level)), zap.AddCaller())
}

func fileCore(filePath string, lvl zapcore.Level) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10, // Megabytes
		MaxBackups: 5,
		MaxAge:     30, // Days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), lvl)
}

// ParseLevel maps LOG_LEVEL values to zap levels, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
