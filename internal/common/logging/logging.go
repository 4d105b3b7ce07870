package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Configure sets the level and formatter of the standard logrus logger and points it at stdout.
func Configure(config Config) error {
	level, err := config.level()
	if err != nil {
		return err
	}
	formatter, err := config.formatter()
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetFormatter(formatter)
	log.SetOutput(os.Stdout)
	return nil
}
