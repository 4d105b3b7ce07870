package configuration

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

// WrapperType is the strategy used to bundle ready jobs into packages.
type WrapperType int

const (
	// Every job is submitted on its own.
	WrapperTypeNone WrapperType = iota
	// Consecutive jobs of one section, e.g., chunks of a member, run one after the other.
	WrapperTypeVertical
	// Independent jobs of one section run side by side.
	WrapperTypeHorizontal
	// Like vertical, but the chain interleaves several sections chunk by chunk.
	WrapperTypeVerticalMixed
	// Side-by-side jobs, followed by layers of their children.
	WrapperTypeHorizontalVertical
	// Side-by-side vertical chains.
	WrapperTypeVerticalHorizontal
)

var wrapperTypeNames = [...]string{
	WrapperTypeNone:               "none",
	WrapperTypeVertical:           "vertical",
	WrapperTypeHorizontal:         "horizontal",
	WrapperTypeVerticalMixed:      "vertical-mixed",
	WrapperTypeHorizontalVertical: "horizontal-vertical",
	WrapperTypeVerticalHorizontal: "vertical-horizontal",
}

func (t WrapperType) String() string {
	if !t.IsValid() {
		return "unknown"
	}
	return wrapperTypeNames[t]
}

func (t WrapperType) IsValid() bool {
	return t >= 0 && int(t) < len(wrapperTypeNames)
}

// Chains returns true for wrapper types that run jobs one after the other, whose length is bounded by wallclock.
func (t WrapperType) Chains() bool {
	switch t {
	case WrapperTypeVertical, WrapperTypeVerticalMixed, WrapperTypeHorizontalVertical, WrapperTypeVerticalHorizontal:
		return true
	}
	return false
}

// ParseWrapperType parses the names returned by String, case-insensitively.
// Underscores may be used in place of hyphens and the empty string is none.
func ParseWrapperType(s string) (WrapperType, error) {
	normalised := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if normalised == "" {
		return WrapperTypeNone, nil
	}
	for i, name := range wrapperTypeNames {
		if name == normalised {
			return WrapperType(i), nil
		}
	}
	return WrapperTypeNone, errors.WithStack(&armadaerrors.ErrConfiguration{
		Field:   "wrapper.type",
		Value:   s,
		Message: "expected one of " + strings.Join(wrapperTypeNames[:], ", "),
	})
}

func (t WrapperType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, errors.WithStack(&armadaerrors.ErrConfiguration{Field: "wrapper.type", Value: int(t)})
	}
	return []byte(t.String()), nil
}

func (t *WrapperType) UnmarshalText(text []byte) error {
	parsed, err := ParseWrapperType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
