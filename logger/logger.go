package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	projectLogger *logrus.Logger
	once          sync.Once
)

// GetProjectLogger returns the logger shared by every pulse component.
func GetProjectLogger() *logrus.Logger {
	once.Do(func() {
		projectLogger = logrus.New()
		projectLogger.SetOutput(os.Stderr)
		projectLogger.SetLevel(logrus.InfoLevel)
		projectLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	})
	return projectLogger
}

// GetComponentLogger returns an entry scoped to a single component, e.g. "clock" or "transport".
func GetComponentLogger(component string) *logrus.Entry {
	return GetProjectLogger().WithField("component", component)
}

// Configure sets the level ("trace", "debug", "info", ...) and the format ("text" or "json") of the project logger.
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	l := GetProjectLogger()
	l.SetLevel(lvl)

	switch format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	return nil
}
