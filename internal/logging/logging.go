// Package logging configures the process-wide structured logger.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/azero-feed/internal/config"
)

// New builds a logrus logger from the logging configuration. Unknown levels
// fall back to info, unknown formats to JSON.
func New(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}

// Component returns a logger tagged with the originating component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
