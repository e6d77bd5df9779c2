package client

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 全局日志；InitLogger 之前丢弃一切输出
var Log = zap.NewNop().Sugar()

// 日志文件滚动参数
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 7
)

// InitLogger 把日志写入 filePath（按大小滚动）；debug 为 true 时输出 Debug 级别
func InitLogger(filePath string, debug bool) error {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	})

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, level)
	Log = zap.New(core, zap.AddCaller()).Sugar().Named("pixelarena")
	return nil
}

func SyncLogger() {
	_ = Log.Sync()
}
