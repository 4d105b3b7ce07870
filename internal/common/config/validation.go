package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

var validate = validator.New()

// Validate runs the `validate` struct tags of config and converts every failing field into an
// ErrConfiguration. All failures are returned together as a multierror.
func Validate(config interface{}) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.WithStack(err)
	}
	var result *multierror.Error
	for _, fieldErr := range validationErrors {
		fieldName := stripPrefix(fieldErr.Namespace())
		var message string
		switch fieldErr.Tag() {
		case "required":
			message = "field is required but was not found"
		default:
			message = "failed check " + fieldErr.Tag()
			if fieldErr.Param() != "" {
				message += "=" + fieldErr.Param()
			}
		}
		log.Errorf("ConfigError: %s: %s", fieldName, message)
		result = multierror.Append(result, &armadaerrors.ErrConfiguration{
			Field:   fieldName,
			Value:   fieldErr.Value(),
			Message: message,
		})
	}
	return result.ErrorOrNil()
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
