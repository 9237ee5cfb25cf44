package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Entry pre-tagged with the service name
type Logger struct {
	*logrus.Entry
}

// Config holds logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json, text
	Output  io.Writer
	Service string
}

// New creates a structured logger. Unknown levels fall back to info.
func New(cfg Config) *Logger {
	log := logrus.New()

	if cfg.Output != nil {
		log.SetOutput(cfg.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	service := cfg.Service
	if service == "" {
		service = "leadscout"
	}
	return &Logger{Entry: log.WithField("service", service)}
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{Entry: l.WithField("component", name)}
}

// Discard returns a logger that writes nowhere, for tests
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Entry: logrus.NewEntry(log)}
}
