package configuration

import (
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
	"github.com/armadaproject/packager/internal/common/config"
	"github.com/armadaproject/packager/internal/common/logging"
)

const (
	DatabaseDriverSqlite = "sqlite"
	DatabaseDriverMemdb  = "memdb"
)

type PackagerConfiguration struct {
	Logging logging.Config
	// How ready jobs are grouped into packages.
	Wrapper WrapperConfig
	// Limits of the platform packages are submitted to.
	Platform PlatformConfig
	// Where job states are persisted between passes.
	Database DatabaseConfig
	// Maximum number of ordered job indices kept per graph.
	SortedIndexCacheSize int `validate:"gte=0"`
}

// WrapperConfig controls how the packager bundles jobs.
type WrapperConfig struct {
	Type WrapperType
	// Sections that are wrapped, separated by whitespace or '&'. Empty means all sections,
	// except for vertical-mixed which needs the sections to interleave spelled out.
	JobsInWrapper string
	// Maximum number of jobs in one package. Zero means the platform's TotalJobs.
	MaxWrappedJobs int `validate:"gte=0"`
	// Per-section overrides of MaxWrappedJobs.
	MaxWrappedJobsBySection map[string]int `validate:"dive,gt=0"`
	// If true, vertical-mixed chains may continue into the next date of the same member.
	AllowCrossDate bool
	// If true, a chain cut short by a limit continues in a new package that depends on it.
	RemoteDependencies bool
}

// PlatformConfig describes the batch system packages are submitted to.
type PlatformConfig struct {
	Name string `validate:"required"`
	// Maximum number of jobs submitted or queued at once.
	MaxWaitingJobs int `validate:"gt=0"`
	// Maximum number of jobs submitted, queued or running at once.
	TotalJobs int `validate:"gt=0"`
	// Maximum wallclock of a single package. Zero means unbounded, which only horizontal wrappers allow.
	MaxWallclock time.Duration `validate:"gte=0"`
	// Maximum processors of a single package. Zero means unbounded.
	MaxProcessors int `validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver string `validate:"omitempty,oneof=sqlite memdb"`
	// Path of the sqlite database file.
	Path string
}

// Sections returns the sections listed in JobsInWrapper in the order given.
func (c WrapperConfig) Sections() []string {
	return strings.FieldsFunc(c.JobsInWrapper, func(r rune) bool {
		return r == '&' || r == ' ' || r == '\t' || r == '\n' || r == ','
	})
}

// SectionExpression returns the wrapped sections as a whitespace-separated string.
func (c WrapperConfig) SectionExpression() string {
	return strings.Join(c.Sections(), " ")
}

// Wraps returns true if jobs of section should be wrapped.
func (c WrapperConfig) Wraps(section string) bool {
	if c.Type == WrapperTypeNone {
		return false
	}
	sections := c.Sections()
	return len(sections) == 0 || slices.Contains(sections, section)
}

// MaxWrappedJobsFor returns the maximum package length for jobs of section.
// The per-section override wins over sectionDefault, which wins over MaxWrappedJobs, which wins over fallback.
// Section names are compared case-insensitively, since config keys are lowercased when loaded;
// an exact match is preferred, then the first match in sorted order.
func (c WrapperConfig) MaxWrappedJobsFor(section string, sectionDefault int, fallback int) int {
	if limit := c.MaxWrappedJobsBySection[section]; limit > 0 {
		return limit
	}
	names := maps.Keys(c.MaxWrappedJobsBySection)
	slices.Sort(names)
	for _, name := range names {
		if limit := c.MaxWrappedJobsBySection[name]; strings.EqualFold(name, section) && limit > 0 {
			return limit
		}
	}
	if sectionDefault > 0 {
		return sectionDefault
	}
	if c.MaxWrappedJobs > 0 {
		return c.MaxWrappedJobs
	}
	return fallback
}

// ValidateWrapper checks the wrapper settings that struct tags can't express.
func ValidateWrapper(wrapper WrapperConfig, platform PlatformConfig) error {
	var result *multierror.Error
	if !wrapper.Type.IsValid() {
		result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "wrapper.type",
			Value:   int(wrapper.Type),
			Message: "unknown wrapper type",
		}))
	}
	if wrapper.Type == WrapperTypeVerticalMixed && len(wrapper.Sections()) == 0 {
		result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "wrapper.jobsInWrapper",
			Message: "vertical-mixed wrappers need the sections to mix",
		}))
	}
	if wrapper.Type.Chains() && platform.MaxWallclock <= 0 {
		result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "platform.maxWallclock",
			Value:   platform.MaxWallclock,
			Message: wrapper.Type.String() + " wrappers need a maximum wallclock",
		}))
	}
	if wrapper.MaxWrappedJobs < 0 {
		result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "wrapper.maxWrappedJobs",
			Value:   wrapper.MaxWrappedJobs,
			Message: "must not be negative",
		}))
	}
	return result.ErrorOrNil()
}

func (c PackagerConfiguration) Validate() error {
	var result *multierror.Error
	if err := config.Validate(c); err != nil {
		result = multierror.Append(result, err)
	}
	if err := ValidateWrapper(c.Wrapper, c.Platform); err != nil {
		result = multierror.Append(result, err)
	}
	if (c.Database.Driver == "" || c.Database.Driver == DatabaseDriverSqlite) && c.Database.Path == "" {
		result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrConfiguration{
			Field:   "database.path",
			Message: "sqlite needs a database path",
		}))
	}
	return result.ErrorOrNil()
}

// Load reads and validates the configuration file at filePath.
func Load(filePath string) (PackagerConfiguration, error) {
	var c PackagerConfiguration
	if err := config.LoadConfig(filePath, &c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, errors.WithMessagef(err, "invalid configuration in %s", filePath)
	}
	return c, nil
}
