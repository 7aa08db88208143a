package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logger tagged with the service name. Development
// builds log at debug level.
func NewLogger(env string) *logrus.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(out io.Writer, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetLevel(logrus.InfoLevel)
	if env == "development" || env == "" {
		log.SetLevel(logrus.DebugLevel)
	}
	log.AddHook(serviceHook{})
	return log
}

type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = "salon-manager"
	}
	return nil
}
