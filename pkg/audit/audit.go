// Package audit records every decision made during a sync run. Entries are
// appended to a plain text file that is truncated when the log is opened, and
// can optionally be mirrored to the console.
package audit

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/deltasync/pkg/errors"
)

// fileFormatter formats entries written to the audit file.
var fileFormatter = &logrus.TextFormatter{
	DisableColors: true,
	FullTimestamp: true,
}

// Log is a logger whose entries go to the audit file. It never writes to
// stdout or stderr itself.
type Log struct {
	*logrus.Logger

	file   afero.File
	mirror bool
}

// Open resets the audit file at path and returns a Log that appends to it.
// An empty path disables the file. If `mirror` is set, every entry is also
// sent to `console`.
func Open(fs afero.Fs, path string, console *logrus.Logger, mirror bool) (*Log, error) {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	logger.SetLevel(logrus.DebugLevel)

	l := &Log{Logger: logger, mirror: mirror && console != nil}
	if path != "" {
		if err := fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.WithContext(err, "remove old audit log")
		}

		if dir := filepath.Dir(path); dir != "." {
			if err := fs.MkdirAll(dir, 0755); err != nil {
				return nil, errors.WithContext(err, "make audit log directory")
			}
		}

		f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.WithContext(err, "open audit log")
		}
		l.file = f
		logger.AddHook(&fileHook{file: f})
	}

	if l.mirror {
		logger.AddHook(&forwardHook{target: console, levels: logrus.AllLevels})
	}
	return l, nil
}

// Tee returns a logger whose entries are written to the audit log. Entries at
// `level` or more severe are also sent to `console`, unless the audit log
// already mirrors everything there.
func (l *Log) Tee(console *logrus.Logger, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(&forwardHook{target: l.Logger, levels: logrus.AllLevels})

	if console != nil && !l.mirror {
		var levels []logrus.Level
		for _, lvl := range logrus.AllLevels {
			if lvl <= level {
				levels = append(levels, lvl)
			}
		}
		logger.AddHook(&forwardHook{target: console, levels: levels})
	}
	return logger
}

// Mirrored returns whether entries are already sent to the console.
func (l *Log) Mirrored() bool {
	return l.mirror
}

// Close closes the audit file. Entries logged afterwards are dropped.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	return f.Close()
}

type fileHook struct {
	file afero.File
	lock sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := fileFormatter.Format(entry)
	if err != nil {
		logrus.WithError(err).Debug("Failed to format audit log entry")
		return nil
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	if _, err := h.file.Write(line); err != nil {
		logrus.WithError(err).Debug("Failed to write audit log entry")
	}

	// Never return an error because doing so causes the error to be printed
	// directly to `stderr`.
	return nil
}

// forwardHook replays entries on another logger.
type forwardHook struct {
	target *logrus.Logger
	levels []logrus.Level
}

func (h *forwardHook) Levels() []logrus.Level {
	return h.levels
}

func (h *forwardHook) Fire(entry *logrus.Entry) error {
	h.target.WithFields(entry.Data).WithTime(entry.Time).Log(entry.Level, entry.Message)
	return nil
}
