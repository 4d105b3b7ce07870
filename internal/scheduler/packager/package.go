package packager

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// Kind is the shape of a package, which decides how its wallclock and processors add up.
type Kind int

const (
	// A single job.
	KindSimple Kind = iota
	// Jobs run one after the other.
	KindVertical
	// Jobs run side by side.
	KindHorizontal
	// Vertical chains run side by side.
	KindVerticalHorizontal
	// Horizontal layers run one after the other.
	KindHorizontalVertical
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindVertical:
		return "vertical"
	case KindHorizontal:
		return "horizontal"
	case KindVerticalHorizontal:
		return "vertical-horizontal"
	case KindHorizontalVertical:
		return "horizontal-vertical"
	}
	return "unknown"
}

// Package is a set of jobs submitted to the batch system as one unit.
// Packages are immutable once built.
type Package struct {
	id   uuid.UUID
	name string
	kind Kind
	// Chains of a vertical-horizontal package, layers of a horizontal-vertical one; a single group otherwise.
	groups [][]*jobgraph.Job
	// All jobs in execution order.
	jobs []*jobgraph.Job
	// Id of the package this one has to wait for, if any.
	dependsOn *uuid.UUID
}

// newPackage builds a package out of groups, which it takes ownership of.
// The id is derived from the job names, so identical packages get identical ids across passes.
func newPackage(expid string, kind Kind, groups [][]*jobgraph.Job, dependsOn *Package) *Package {
	var jobs []*jobgraph.Job
	for _, group := range groups {
		jobs = append(jobs, group...)
	}
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Name
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind.String()+":"+strings.Join(names, ",")))
	p := &Package{
		id:     id,
		name:   fmt.Sprintf("%s_%s_%s", expid, kind, id.String()[:8]),
		kind:   kind,
		groups: groups,
		jobs:   jobs,
	}
	if dependsOn != nil {
		dependsOnId := dependsOn.id
		p.dependsOn = &dependsOnId
	}
	return p
}

func (p *Package) Id() uuid.UUID {
	return p.id
}

func (p *Package) Name() string {
	return p.name
}

func (p *Package) Kind() Kind {
	return p.kind
}

// DependsOn returns the id of the package that has to finish before this one may start.
func (p *Package) DependsOn() (uuid.UUID, bool) {
	if p.dependsOn == nil {
		return uuid.Nil, false
	}
	return *p.dependsOn, true
}

// Jobs returns the jobs of the package in execution order.
func (p *Package) Jobs() []*jobgraph.Job {
	return slices.Clone(p.jobs)
}

// Groups returns the chains or layers of the package.
func (p *Package) Groups() [][]*jobgraph.Job {
	rv := make([][]*jobgraph.Job, len(p.groups))
	for i, group := range p.groups {
		rv[i] = slices.Clone(group)
	}
	return rv
}

func (p *Package) JobNames() []string {
	rv := make([]string, len(p.jobs))
	for i, job := range p.jobs {
		rv[i] = job.Name
	}
	return rv
}

func (p *Package) Len() int {
	return len(p.jobs)
}

// TotalWallclock is how long the package is expected to run for.
// Jobs run one after the other add up and jobs run side by side take as long as the longest one.
func (p *Package) TotalWallclock() time.Duration {
	switch p.kind {
	case KindHorizontal:
		return maxWallclock(p.jobs)
	case KindVerticalHorizontal:
		var rv time.Duration
		for _, chain := range p.groups {
			if w := sumWallclock(chain); w > rv {
				rv = w
			}
		}
		return rv
	case KindHorizontalVertical:
		var rv time.Duration
		for _, layer := range p.groups {
			rv += maxWallclock(layer)
		}
		return rv
	default:
		return sumWallclock(p.jobs)
	}
}

// Processors is the largest number of processors the package uses at any one time.
func (p *Package) Processors() int {
	switch p.kind {
	case KindHorizontal:
		return sumProcessors(p.jobs)
	case KindVerticalHorizontal:
		rv := 0
		for _, chain := range p.groups {
			rv += maxProcessors(chain)
		}
		return rv
	case KindHorizontalVertical:
		rv := 0
		for _, layer := range p.groups {
			if n := sumProcessors(layer); n > rv {
				rv = n
			}
		}
		return rv
	default:
		return maxProcessors(p.jobs)
	}
}

// Equal returns true if both packages contain the same jobs in the same order.
func (p *Package) Equal(other *Package) bool {
	return slices.Equal(p.JobNames(), other.JobNames())
}

func (p *Package) String() string {
	return fmt.Sprintf("%s%v", p.name, p.JobNames())
}

func sumWallclock(jobs []*jobgraph.Job) time.Duration {
	var rv time.Duration
	for _, job := range jobs {
		rv += job.Wallclock
	}
	return rv
}

func maxWallclock(jobs []*jobgraph.Job) time.Duration {
	var rv time.Duration
	for _, job := range jobs {
		if job.Wallclock > rv {
			rv = job.Wallclock
		}
	}
	return rv
}

func sumProcessors(jobs []*jobgraph.Job) int {
	rv := 0
	for _, job := range jobs {
		rv += job.Processors
	}
	return rv
}

func maxProcessors(jobs []*jobgraph.Job) int {
	rv := 0
	for _, job := range jobs {
		if job.Processors > rv {
			rv = job.Processors
		}
	}
	return rv
}
