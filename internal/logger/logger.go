// Package logger provides centralized logging for the watchdog.
//
// Log output goes to a file under the config directory and to stderr.
// The presentation layer can additionally subscribe to the live line
// stream via AddListener (used by the log viewer).
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	log     = zap.NewNop()
	logPath string

	listMutex sync.RWMutex
	listeners []func(string)
)

// Init initializes the logger. dir is the directory the log file lives in.
func Init(dir, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, "watchdog.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEnc := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEnc, zapcore.AddSync(f), lvl),
		zapcore.NewCore(consoleEnc, zapcore.AddSync(os.Stderr), lvl),
		&listenerCore{LevelEnabler: lvl, enc: consoleEnc.Clone()},
	)

	mu.Lock()
	log = zap.New(core)
	logPath = path
	mu.Unlock()
	return nil
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Sync flushes buffered log entries.
func Sync() {
	L().Sync()
}

// AddListener adds a callback that receives formatted log lines.
func AddListener(fn func(string)) {
	listMutex.Lock()
	defer listMutex.Unlock()
	listeners = append(listeners, fn)
}

// GetLogPath returns the path to the log file.
func GetLogPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logPath
}

// ReadLogs reads the log file contents.
func ReadLogs() (string, error) {
	path := GetLogPath()
	if path == "" {
		return "", fmt.Errorf("logger not initialized")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Recover should be deferred at the top of every goroutine to catch panics.
// Usage: go func() { defer logger.Recover("myGoroutine"); ... }()
func Recover(name string) {
	if r := recover(); r != nil {
		L().Error("panic recovered",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
	}
}

// SafeGo launches a goroutine with panic recovery.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// listenerCore fans encoded log lines out to registered listeners.
type listenerCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
}

func (c *listenerCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &listenerCore{LevelEnabler: c.LevelEnabler, enc: c.enc.Clone()}
	for i := range fields {
		fields[i].AddTo(clone.enc)
	}
	return clone
}

func (c *listenerCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *listenerCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	listMutex.RLock()
	defer listMutex.RUnlock()
	if len(listeners) == 0 {
		return nil
	}

	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := buf.String()
	buf.Free()
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	for _, fn := range listeners {
		fn(line)
	}
	return nil
}

func (c *listenerCore) Sync() error { return nil }
