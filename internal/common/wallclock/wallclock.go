// Package wallclock converts between the "HH:MM" wallclock strings used by workflow definitions and
// platform descriptors and time.Duration.
package wallclock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

// Parse parses a wallclock of the form "HH:MM". Hours may exceed 24 and may have more than two digits.
// The empty string parses to zero, which callers treat as "no wallclock given".
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	hoursString, minutesString, ok := strings.Cut(s, ":")
	if !ok {
		return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "wallclock",
			Value:   s,
			Message: "expected HH:MM",
		})
	}
	hours, err := strconv.Atoi(hoursString)
	if err != nil || hours < 0 {
		return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "wallclock",
			Value:   s,
			Message: "hours must be a non-negative integer",
		})
	}
	minutes, err := strconv.Atoi(minutesString)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "wallclock",
			Value:   s,
			Message: "minutes must be an integer between 0 and 59",
		})
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// MustParse is like Parse but panics on error. Only meant for tests and constants.
func MustParse(s string) time.Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format formats d as "HH:MM", truncating anything below a minute.
func Format(d time.Duration) string {
	d = d.Truncate(time.Minute)
	hours := d / time.Hour
	minutes := (d - hours*time.Hour) / time.Minute
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
