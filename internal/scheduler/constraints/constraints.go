package constraints

import (
	"time"

	"github.com/armadaproject/packager/internal/scheduler/configuration"
)

const (
	UnpackableReasonMaximumNumberOfJobsPacked = "maximum number of jobs packed"
	UnpackableReasonMaximumPackageLength      = "maximum package length"
	UnpackableReasonMaximumWallclock          = "package would exceed maximum wallclock"
	UnpackableReasonMaximumProcessors         = "package would exceed maximum processors"
)

// IsTerminalUnpackableReason returns true if reason indicates it's not possible to pack any more jobs in this pass.
func IsTerminalUnpackableReason(reason string) bool {
	return reason == UnpackableReasonMaximumNumberOfJobsPacked
}

// PackagingConstraints are the limits a packaging pass works within.
// Zero MaximumWallclock or MaximumProcessors means that limit isn't enforced.
type PackagingConstraints struct {
	// Max number of jobs to pack across all packages of one pass.
	MaximumJobsToPack int
	// Max number of jobs in a single package.
	MaximumPackageLength int
	// Max wallclock of a single package, computed according to the package's shape.
	MaximumWallclock time.Duration
	// Max processors used at any one time by a single package.
	MaximumProcessors int
}

// PackagingConstraintsFromConfig returns the constraints of a pass allowed to pack at most maxJobs jobs.
// The package length defaults to the platform's total job limit unless the wrapper sets one.
func PackagingConstraintsFromConfig(
	wrapper configuration.WrapperConfig,
	platform configuration.PlatformConfig,
	maxJobs int,
) PackagingConstraints {
	return PackagingConstraints{
		MaximumJobsToPack:    maxJobs,
		MaximumPackageLength: wrapper.MaxWrappedJobsFor("", 0, platform.TotalJobs),
		MaximumWallclock:     platform.MaxWallclock,
		MaximumProcessors:    platform.MaxProcessors,
	}
}

// WithMaximumPackageLength returns a copy of the constraints with a different package length limit,
// e.g., for a section with its own limit.
func (constraints PackagingConstraints) WithMaximumPackageLength(n int) PackagingConstraints {
	constraints.MaximumPackageLength = n
	return constraints
}

// CheckRoundConstraints returns false, and why, if no more jobs may be packed after numPacked have been.
func (constraints *PackagingConstraints) CheckRoundConstraints(numPacked int) (bool, string) {
	if numPacked >= constraints.MaximumJobsToPack {
		return false, UnpackableReasonMaximumNumberOfJobsPacked
	}
	return true, ""
}

// CheckPackageConstraints returns false, and why, if a package of the given length, wallclock and processors
// would be over the limits.
func (constraints *PackagingConstraints) CheckPackageConstraints(length int, wallclock time.Duration, processors int) (bool, string) {
	if constraints.MaximumPackageLength > 0 && length > constraints.MaximumPackageLength {
		return false, UnpackableReasonMaximumPackageLength
	}
	if constraints.MaximumWallclock > 0 && wallclock > constraints.MaximumWallclock {
		return false, UnpackableReasonMaximumWallclock
	}
	if constraints.MaximumProcessors > 0 && processors > constraints.MaximumProcessors {
		return false, UnpackableReasonMaximumProcessors
	}
	return true, ""
}
