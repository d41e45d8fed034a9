// Package log writes structured diagnostics to daily files under where.Logs().
// Nothing is written unless logs.write is set.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/reelscout/reelscout/filesystem"
	"github.com/reelscout/reelscout/key"
	"github.com/reelscout/reelscout/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// KeepDays is how many daily log files survive Setup.
const KeepDays = 7

const layout = "2006-01-02"

var logger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}

// Setup opens today's log file and applies the format and level settings.
func Setup() error {
	if !viper.GetBool(key.LogsWrite) {
		logger.SetOutput(io.Discard)
		logger.SetLevel(logrus.PanicLevel)
		return nil
	}

	dir := where.Logs()
	path := filepath.Join(dir, time.Now().Format(layout)+".log")

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if removed := Prune(dir, KeepDays); removed > 0 {
		logger.Debugf("removed %d old log files", removed)
	}
	return nil
}

// Prune deletes the oldest daily log files in dir so at most keep remain.
// It returns the number of files removed.
func Prune(dir string, keep int) int {
	entries, err := filesystem.API().ReadDir(dir)
	if err != nil {
		return 0
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		if _, err := time.Parse(layout, strings.TrimSuffix(name, ".log")); err == nil {
			days = append(days, name)
		}
	}

	if len(days) <= keep {
		return 0
	}

	sort.Strings(days)
	var removed int
	for _, name := range days[:len(days)-keep] {
		if filesystem.API().Remove(filepath.Join(dir, name)) == nil {
			removed++
		}
	}
	return removed
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func Error(args ...any)                 { logger.Error(args...) }
func Errorf(format string, args ...any) { logger.Errorf(format, args...) }
func Warn(args ...any)                  { logger.Warn(args...) }
func Warnf(format string, args ...any)  { logger.Warnf(format, args...) }
func Info(args ...any)                  { logger.Info(args...) }
func Infof(format string, args ...any)  { logger.Infof(format, args...) }
func Debug(args ...any)                 { logger.Debug(args...) }
func Debugf(format string, args ...any) { logger.Debugf(format, args...) }
