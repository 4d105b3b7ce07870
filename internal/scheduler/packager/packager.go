package packager

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
	"github.com/armadaproject/packager/internal/common/config"
	"github.com/armadaproject/packager/internal/common/logging"
	"github.com/armadaproject/packager/internal/scheduler/configuration"
	"github.com/armadaproject/packager/internal/scheduler/constraints"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// Packager groups the ready jobs of a graph into packages according to a wrapper configuration,
// within the limits of a platform.
//
// A Packager mutates the graph it's given: every job placed into a package has Packed set.
// It must not be used concurrently, nor alongside another Packager on the same graph.
type Packager struct {
	graph       *jobgraph.Graph
	wrapper     configuration.WrapperConfig
	platform    configuration.PlatformConfig
	constraints constraints.PackagingConstraints
	metrics     *Metrics
	// Number of jobs placed into packages so far in the current pass.
	numPacked int
	log       *log.Entry
}

// NewPackager validates the configuration against the graph and returns a packager for it.
// metrics may be nil.
func NewPackager(
	graph *jobgraph.Graph,
	wrapper configuration.WrapperConfig,
	platform configuration.PlatformConfig,
	metrics *Metrics,
) (*Packager, error) {
	if graph == nil {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "graph", Value: nil, Message: "graph is required"})
	}
	if err := config.Validate(platform); err != nil {
		return nil, err
	}
	if err := configuration.ValidateWrapper(wrapper, platform); err != nil {
		return nil, err
	}
	for _, section := range wrapper.Sections() {
		if _, ok := graph.Section(section); !ok {
			return nil, errors.WithStack(&armadaerrors.ErrConfiguration{
				Field:   "wrapper.jobsInWrapper",
				Value:   section,
				Message: "no such section in the workflow",
			})
		}
	}
	return &Packager{
		graph:       graph,
		wrapper:     wrapper,
		platform:    platform,
		constraints: constraints.PackagingConstraintsFromConfig(wrapper, platform, MaxJobs(graph, platform)),
		metrics:     metrics,
		log: log.WithFields(log.Fields{
			"expid":    graph.Expid(),
			"platform": platform.Name,
			"wrapper":  wrapper.Type.String(),
		}),
	}, nil
}

// MaxJobs returns how many more jobs the platform accepts, given the jobs of graph it already holds.
func MaxJobs(graph *jobgraph.Graph, platform configuration.PlatformConfig) int {
	waiting := graph.CountByStatus(func(s jobgraph.Status) bool {
		return s == jobgraph.Submitted || s == jobgraph.Queued
	})
	inQueue := graph.CountByStatus(jobgraph.Status.InQueue)
	maxJobs := platform.MaxWaitingJobs - waiting
	if n := platform.TotalJobs - inQueue; n < maxJobs {
		maxJobs = n
	}
	if maxJobs < 0 {
		return 0
	}
	return maxJobs
}

// BuildPackages groups the ready, unpacked jobs of the graph into packages and marks them packed.
// The budget of jobs the platform accepts is recomputed from the graph on every call.
//
// An empty result isn't an error. An error means the graph is inconsistent with the configuration;
// the pass is abandoned and packages built before the error are discarded, although their jobs stay packed
// until the caller re-syncs the graph.
func (p *Packager) BuildPackages() ([]*Package, error) {
	start := time.Now()
	defer func() { p.metrics.ReportPassDuration(time.Since(start)) }()

	p.numPacked = 0
	p.constraints.MaximumJobsToPack = MaxJobs(p.graph, p.platform)
	ready := p.graph.GetReadyJobs("")
	if len(ready) == 0 || p.constraints.MaximumJobsToPack <= 0 {
		p.log.Debugf("nothing to package: %d ready jobs, room for %d jobs", len(ready), p.constraints.MaximumJobsToPack)
		return nil, nil
	}
	p.sortReadyJobs(ready)
	if len(ready) > p.constraints.MaximumJobsToPack {
		ready = ready[:p.constraints.MaximumJobsToPack]
	}

	var packages []*Package
	for _, group := range p.groupBySection(ready) {
		var built []*Package
		var err error
		if !group.wrapped {
			built = p.buildSimplePackages(group.jobs)
		} else {
			switch p.wrapper.Type {
			case configuration.WrapperTypeVertical:
				built, err = p.buildVerticalPackages(group.jobs, false)
			case configuration.WrapperTypeVerticalMixed:
				built, err = p.buildVerticalPackages(group.jobs, true)
			case configuration.WrapperTypeHorizontal:
				built = p.buildHorizontalPackages(group.jobs)
			case configuration.WrapperTypeVerticalHorizontal:
				built = p.buildVerticalHorizontalPackages(group.jobs)
			case configuration.WrapperTypeHorizontalVertical:
				built = p.buildHorizontalVerticalPackages(group.jobs)
			default:
				built = p.buildSimplePackages(group.jobs)
			}
		}
		if err != nil {
			logging.WithError(p.log, err).Error("failed to build packages")
			return nil, err
		}
		packages = append(packages, built...)
	}
	p.log.Infof("built %d packages containing %d jobs from %d ready jobs", len(packages), p.numPacked, len(ready))
	return packages, nil
}

// sortReadyJobs orders jobs by date, then by descending priority. Ties keep graph order.
func (p *Packager) sortReadyJobs(jobs []*jobgraph.Job) {
	slices.SortStableFunc(jobs, func(a, b *jobgraph.Job) bool {
		if da, db := p.graph.DateIndex(a.Date()), p.graph.DateIndex(b.Date()); da != db {
			return da < db
		}
		return a.Priority > b.Priority
	})
}

type sectionGroup struct {
	// Section name, or the wrapped section expression for mixed wrappers.
	name    string
	wrapped bool
	jobs    []*jobgraph.Job
}

// groupBySection splits jobs by section, in order of first appearance.
// Mixed wrappers interleave their sections, so all wrapped sections form one group.
func (p *Packager) groupBySection(jobs []*jobgraph.Job) []*sectionGroup {
	var groups []*sectionGroup
	byName := make(map[string]*sectionGroup)
	for _, job := range jobs {
		name := job.Section()
		wrapped := p.wrapper.Wraps(name)
		if wrapped && p.wrapper.Type == configuration.WrapperTypeVerticalMixed {
			name = p.wrapper.SectionExpression()
		}
		group, ok := byName[name]
		if !ok {
			group = &sectionGroup{name: name, wrapped: wrapped}
			byName[name] = group
			groups = append(groups, group)
		}
		group.jobs = append(group.jobs, job)
	}
	return groups
}

// constraintsFor returns the packaging constraints for jobs of section.
func (p *Packager) constraintsFor(section string) constraints.PackagingConstraints {
	sectionDefault := 0
	if s, ok := p.graph.Section(section); ok {
		sectionDefault = s.MaxWrapped
	}
	return p.constraints.WithMaximumPackageLength(
		p.wrapper.MaxWrappedJobsFor(section, sectionDefault, p.constraints.MaximumPackageLength),
	)
}

// roomForMore returns true if reserved more jobs can be packed on top of those placed already.
// Otherwise the reason is recorded.
func (p *Packager) roomForMore(reserved int) bool {
	if ok, reason := p.constraints.CheckRoundConstraints(p.numPacked + reserved); !ok {
		p.metrics.ReportChainStop(reason)
		return false
	}
	return true
}

// place marks the jobs of pkg as packed and counts them against the budget of the pass.
func (p *Packager) place(pkg *Package) *Package {
	for _, job := range pkg.jobs {
		job.Packed = true
	}
	p.numPacked += pkg.Len()
	p.metrics.ReportPackage(p.wrapper.Type.String(), pkg)
	p.log.WithFields(log.Fields{
		"package":   pkg.Name(),
		"kind":      pkg.Kind().String(),
		"jobs":      pkg.Len(),
		"wallclock": pkg.TotalWallclock().String(),
	}).Debugf("built package %v", pkg.JobNames())
	return pkg
}

// buildSimplePackages puts every job into a package of its own.
func (p *Packager) buildSimplePackages(jobs []*jobgraph.Job) []*Package {
	var packages []*Package
	for _, job := range jobs {
		if job.Packed {
			continue
		}
		if !p.roomForMore(0) {
			break
		}
		packages = append(packages, p.place(newPackage(p.graph.Expid(), KindSimple, [][]*jobgraph.Job{{job}}, nil)))
	}
	return packages
}
