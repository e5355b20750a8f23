// Package eventlog builds the service logger: structured console output plus
// a per-day append-only log file under the configured directory. The file is
// the only durable trace of background pipeline outcomes, so every pipeline
// event goes through here.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger writing to stdout and to the daily log file in dir.
// The directory is created if missing.
func New(dir string) (*zap.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		zapcore.InfoLevel,
	)
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(newDailyWriter(dir)),
		zapcore.InfoLevel,
	)

	return zap.New(zapcore.NewTee(consoleCore, fileCore)), nil
}

// dailyWriter appends to deployment_YYYYMMDD.log, rolling to a new file when
// the date changes between writes.
type dailyWriter struct {
	dir string

	mu   sync.Mutex
	day  string
	file *os.File
}

func newDailyWriter(dir string) *dailyWriter {
	return &dailyWriter{dir: dir}
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := time.Now().Format("20060102")
	if w.file == nil || day != w.day {
		if w.file != nil {
			w.file.Close()
		}
		name := filepath.Join(w.dir, fmt.Sprintf("deployment_%s.log", day))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file = f
		w.day = day
	}
	return w.file.Write(p)
}
