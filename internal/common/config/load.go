package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// KeyDelimiter separates nested keys. Using "::" leaves "." free for use inside keys.
const KeyDelimiter = "::"

// LoadConfig reads the file at filePath into config using CustomHooks.
// The file type is derived from the extension. Validation is left to the caller.
func LoadConfig(filePath string, config interface{}) error {
	v := viper.NewWithOptions(viper.KeyDelimiter(KeyDelimiter))
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		err = errors.WithMessagef(err, "failed to read in config %s", filePath)
		return errors.WithStack(err)
	}
	if err := v.Unmarshal(config, CustomHooks...); err != nil {
		err = errors.WithMessagef(err, "failed to unmarshal config %s", filePath)
		return errors.WithStack(err)
	}
	log.Debugf("loaded config from %s", filePath)
	return nil
}
