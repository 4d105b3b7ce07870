package logging

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

const (
	FormatText = "text"
	FormatJson = "json"
)

// Config defines logging configuration.
type Config struct {
	// Log level, e.g. info, debug etc.
	Level string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	// Logging format, either text or json.
	Format string `validate:"omitempty,oneof=text json"`
}

func (c Config) level() (log.Level, error) {
	if c.Level == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return 0, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "logging.level",
			Value:   c.Level,
			Message: err.Error(),
		})
	}
	return level, nil
}

func (c Config) formatter() (log.Formatter, error) {
	switch strings.ToLower(c.Format) {
	case "", FormatText:
		return &log.TextFormatter{ForceColors: true, FullTimestamp: true}, nil
	case FormatJson:
		return &log.JSONFormatter{}, nil
	default:
		return nil, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "logging.format",
			Value:   c.Format,
			Message: "expected text or json",
		})
	}
}
