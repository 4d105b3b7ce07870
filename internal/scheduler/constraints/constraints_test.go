package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/armadaproject/packager/internal/scheduler/configuration"
)

func TestConstraints(t *testing.T) {
	tests := map[string]struct {
		constraints              PackagingConstraints
		numPacked                int
		length                   int
		wallclock                time.Duration
		processors               int
		roundUnpackableReason    string
		packageUnpackableReason  string
		terminalUnpackableReason bool
	}{
		"within limits": {
			constraints: PackagingConstraints{MaximumJobsToPack: 12, MaximumPackageLength: 10, MaximumWallclock: 10 * time.Hour},
			numPacked:   11,
			length:      10,
			wallclock:   100 * time.Minute,
		},
		"jobs packed": {
			constraints:              PackagingConstraints{MaximumJobsToPack: 12, MaximumPackageLength: 10},
			numPacked:                12,
			length:                   1,
			roundUnpackableReason:    UnpackableReasonMaximumNumberOfJobsPacked,
			terminalUnpackableReason: true,
		},
		"no jobs allowed": {
			constraints:              PackagingConstraints{},
			length:                   1,
			roundUnpackableReason:    UnpackableReasonMaximumNumberOfJobsPacked,
			terminalUnpackableReason: true,
		},
		"package length": {
			constraints:             PackagingConstraints{MaximumJobsToPack: 20, MaximumPackageLength: 5},
			length:                  6,
			packageUnpackableReason: UnpackableReasonMaximumPackageLength,
		},
		"wallclock": {
			constraints:             PackagingConstraints{MaximumJobsToPack: 20, MaximumPackageLength: 10, MaximumWallclock: 50 * time.Minute},
			length:                  6,
			wallclock:               60 * time.Minute,
			packageUnpackableReason: UnpackableReasonMaximumWallclock,
		},
		"wallclock exactly at limit": {
			constraints: PackagingConstraints{MaximumJobsToPack: 20, MaximumPackageLength: 10, MaximumWallclock: 50 * time.Minute},
			length:      5,
			wallclock:   50 * time.Minute,
		},
		"unbounded wallclock": {
			constraints: PackagingConstraints{MaximumJobsToPack: 20, MaximumPackageLength: 10},
			length:      5,
			wallclock:   500 * time.Hour,
		},
		"processors": {
			constraints:             PackagingConstraints{MaximumJobsToPack: 20, MaximumPackageLength: 10, MaximumProcessors: 8},
			length:                  3,
			processors:              12,
			packageUnpackableReason: UnpackableReasonMaximumProcessors,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ok, unpackableReason := tc.constraints.CheckRoundConstraints(tc.numPacked)
			require.Equal(t, tc.roundUnpackableReason == "", ok)
			require.Equal(t, tc.roundUnpackableReason, unpackableReason)
			require.Equal(t, tc.terminalUnpackableReason, IsTerminalUnpackableReason(unpackableReason))

			ok, unpackableReason = tc.constraints.CheckPackageConstraints(tc.length, tc.wallclock, tc.processors)
			require.Equal(t, tc.packageUnpackableReason == "", ok)
			require.Equal(t, tc.packageUnpackableReason, unpackableReason)
			require.False(t, IsTerminalUnpackableReason(unpackableReason))
		})
	}
}

func TestPackagingConstraintsFromConfig(t *testing.T) {
	platform := configuration.PlatformConfig{
		Name:           "p",
		MaxWaitingJobs: 20,
		TotalJobs:      15,
		MaxWallclock:   10 * time.Hour,
		MaxProcessors:  48,
	}
	constraints := PackagingConstraintsFromConfig(configuration.WrapperConfig{Type: configuration.WrapperTypeVertical}, platform, 12)
	require.Equal(t, PackagingConstraints{
		MaximumJobsToPack:    12,
		MaximumPackageLength: 15,
		MaximumWallclock:     10 * time.Hour,
		MaximumProcessors:    48,
	}, constraints)

	constraints = PackagingConstraintsFromConfig(configuration.WrapperConfig{Type: configuration.WrapperTypeVertical, MaxWrappedJobs: 5}, platform, 12)
	require.Equal(t, 5, constraints.MaximumPackageLength)
	require.Equal(t, 3, constraints.WithMaximumPackageLength(3).MaximumPackageLength)
	require.Equal(t, 5, constraints.MaximumPackageLength)
}
