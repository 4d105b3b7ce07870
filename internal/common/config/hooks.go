package config

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/armadaproject/packager/internal/common/wallclock"
)

// CustomHooks are the decode hooks used when unmarshalling configuration.
// viper keeps only the last DecodeHook option it's given, so the hooks are composed into one.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		WallclockDecodeHook(),
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

// WallclockDecodeHook decodes strings into time.Duration.
// Strings of the form "HH:MM" are wallclocks; anything else is handed to time.ParseDuration, e.g., "90m".
func WallclockDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		s := data.(string)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		return wallclock.Parse(s)
	}
}
