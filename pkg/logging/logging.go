package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Entry
}

var (
	logger *Logger
	once   sync.Once
)

// GetLogger returns the process-wide logger. Components get their logger
// through constructors; only main and the CLI call this.
func GetLogger() *Logger {
	once.Do(func() {
		logger = New(logrus.InfoLevel, os.Stdout)
	})
	return logger
}

func New(level logrus.Level, out io.Writer) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000",
	})
	return &Logger{Entry: logrus.NewEntry(l)}
}

// SetLevel parses a textual level ("debug", "info", ...) and applies it to the
// process logger. Unknown levels keep the current one.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		GetLogger().Warnf("unknown log level %q, keeping %s", level, GetLogger().Logger.GetLevel())
		return
	}
	GetLogger().Logger.SetLevel(lvl)
}

// SetFile duplicates the process log into path (stdout is kept).
func SetFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	GetLogger().Logger.SetOutput(io.MultiWriter(file, os.Stdout))
	return nil
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(fields)}
}

// Discard is a logger that drops everything, for tests.
func Discard() *Logger {
	return New(logrus.PanicLevel, io.Discard)
}
