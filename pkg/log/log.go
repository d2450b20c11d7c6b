// Package log 是对 zap SugaredLogger 的一层薄封装，供整个项目共用。
package log

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logFile 是 outputPath 为目录时写入的文件名。
const logFile = "meme-guard.log"

// 在 Init 之前使用 no-op logger，库代码和测试无需先初始化日志。
var sugar = zap.NewNop().Sugar()

// newConfig 按级别、编码和输出路径构造 zap 配置。无法识别的级别退回 info。
// outputPath 以 .log 结尾时视为文件，否则视为目录，日志写入其中的 meme-guard.log。
func newConfig(level, format, outputPath string) zap.Config {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		// 批处理时日志量大，采样会丢掉逐帖的步骤日志
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	cfg.OutputPaths = []string{"stdout"}
	if outputPath != "" {
		file := outputPath
		if filepath.Ext(outputPath) != ".log" {
			file = filepath.Join(outputPath, logFile)
		}
		_ = os.MkdirAll(filepath.Dir(file), os.ModePerm)
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}
	return cfg
}

// Init 初始化全局 logger，配置无法构建时 panic。
func Init(level, format, outputPath string) {
	logger, err := newConfig(level, format, outputPath).Build()
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

func Info(msg string)                                { sugar.Info(msg) }
func Infof(template string, args ...interface{})     { sugar.Infof(template, args...) }
func Infow(msg string, keysAndValues ...interface{}) { sugar.Infow(msg, keysAndValues...) }
func Debugf(template string, args ...interface{})    { sugar.Debugf(template, args...) }
func Warn(msg string)                                { sugar.Warn(msg) }
func Warnf(template string, args ...interface{})     { sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{})    { sugar.Errorf(template, args...) }
func Fatalf(template string, args ...interface{})    { sugar.Fatalf(template, args...) }

// Error 记录一条 error 级别的日志，err 放在 error 字段里。
func Error(msg string, err error) {
	sugar.Errorw(msg, "error", err)
}

// Fatal 记录 err 后退出进程。
func Fatal(msg string, err error) {
	sugar.Fatalw(msg, "error", err)
}

// Sync 刷新缓冲区，main 退出前调用。
func Sync() {
	_ = sugar.Sync()
}

// Leveled 适配 hashicorp/go-retryablehttp 的 LeveledLogger 接口。
// 重试过程中的 ERROR 降级为 WARN，DEBUG 升级为 INFO（重试信息记录在 DEBUG 级别）。
type Leveled struct{}

func (Leveled) Error(msg string, keysAndValues ...interface{}) { sugar.Warnw(msg, keysAndValues...) }
func (Leveled) Warn(msg string, keysAndValues ...interface{})  { sugar.Warnw(msg, keysAndValues...) }
func (Leveled) Info(msg string, keysAndValues ...interface{})  { sugar.Infow(msg, keysAndValues...) }
func (Leveled) Debug(msg string, keysAndValues ...interface{}) { sugar.Infow(msg, keysAndValues...) }
