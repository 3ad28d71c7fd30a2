package helpers

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger. Development gets coloured text at debug
// level; every other environment gets JSON at info level. Every entry carries the
// app and env fields.
func NewLogger(appName, env string) *logrus.Logger {
	return newLogger(os.Stdout, appName, env)
}

func newLogger(out io.Writer, appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.AddHook(StaticFieldsHook{"app": appName, "env": env})
	logger.Debug("logger initialized")
	return logger
}

// StaticFieldsHook stamps fixed fields on every entry without overriding
// fields the caller set explicitly.
type StaticFieldsHook logrus.Fields

func (h StaticFieldsHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h StaticFieldsHook) Fire(e *logrus.Entry) error {
	for k, v := range h {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}
