package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
)

func init() {
	Init(os.Getenv("ENVIRONMENT"))
}

// Init rebuilds the global logger. Development gets a console encoder at debug
// level, everything else JSON at info level.
func Init(environment string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewExample()
	}

	mu.Lock()
	sugar = l.Sugar()
	mu.Unlock()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Info(format string, v ...interface{}) {
	get().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	get().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	get().Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

// Sync flushes buffered entries; call it before exit.
func Sync() {
	_ = get().Sync()
}

// LogMembershipError records a failed membership mutation on a group.
func LogMembershipError(groupID, action string, err error) {
	Warn("Membership log error: action=%s, groupID=%s, error=%v", action, groupID, err)
}
