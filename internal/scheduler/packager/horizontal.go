package packager

import (
	"time"

	"github.com/armadaproject/packager/internal/scheduler/constraints"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// takeHorizontalGroup returns the next group of jobs, starting at *cursor, that can run side by side within limits.
// reserved is the number of jobs already promised to the package being built.
// The first job is always taken. A job that depends on, or is depended on by, a job of the group
// starts the next group instead. Packed jobs are passed over.
func (p *Packager) takeHorizontalGroup(
	jobs []*jobgraph.Job,
	cursor *int,
	limits constraints.PackagingConstraints,
	reserved int,
) []*jobgraph.Job {
	var group []*jobgraph.Job
	ids := make(map[jobgraph.JobId]bool)
	var wallclock time.Duration
	processors := 0
	for *cursor < len(jobs) {
		job := jobs[*cursor]
		if job.Packed || ids[job.Id()] {
			*cursor++
			continue
		}
		if !p.roomForMore(reserved + len(group)) {
			break
		}
		if len(group) > 0 {
			groupWallclock := wallclock
			if job.Wallclock > groupWallclock {
				groupWallclock = job.Wallclock
			}
			if ok, reason := limits.CheckPackageConstraints(len(group)+1, groupWallclock, processors+job.Processors); !ok {
				p.metrics.ReportChainStop(reason)
				break
			}
			if p.related(job, ids) {
				break
			}
		}
		group = append(group, job)
		ids[job.Id()] = true
		if job.Wallclock > wallclock {
			wallclock = job.Wallclock
		}
		processors += job.Processors
		*cursor++
	}
	return group
}

// related returns true if job has a direct dependency on, or is a direct dependency of, any job in ids.
func (p *Packager) related(job *jobgraph.Job, ids map[jobgraph.JobId]bool) bool {
	for _, id := range job.ParentIds() {
		if ids[id] {
			return true
		}
	}
	for _, id := range job.ChildIds() {
		if ids[id] {
			return true
		}
	}
	return false
}

// buildHorizontalPackages splits the jobs of one section into packages of jobs that run side by side.
func (p *Packager) buildHorizontalPackages(jobs []*jobgraph.Job) []*Package {
	if len(jobs) == 0 {
		return nil
	}
	limits := p.constraintsFor(jobs[0].Section())
	var packages []*Package
	cursor := 0
	for {
		group := p.takeHorizontalGroup(jobs, &cursor, limits, 0)
		if len(group) == 0 {
			return packages
		}
		packages = append(packages, p.place(newPackage(p.graph.Expid(), KindHorizontal, [][]*jobgraph.Job{group}, nil)))
	}
}

// buildVerticalHorizontalPackages takes horizontal groups of jobs and extends each job of a group into a
// vertical chain. The chains of a group run side by side in one package.
func (p *Packager) buildVerticalHorizontalPackages(jobs []*jobgraph.Job) []*Package {
	if len(jobs) == 0 {
		return nil
	}
	limits := p.constraintsFor(jobs[0].Section())
	var packages []*Package
	cursor := 0
	for {
		anchors := p.takeHorizontalGroup(jobs, &cursor, limits, 0)
		if len(anchors) == 0 {
			return packages
		}
		inPackage := make(map[jobgraph.JobId]bool, len(anchors))
		for _, job := range anchors {
			inPackage[job.Id()] = true
		}
		exclude := func(id jobgraph.JobId) bool { return inPackage[id] }
		reserved := len(anchors)
		chains := make([][]*jobgraph.Job, 0, len(anchors))
		for _, job := range anchors {
			// The anchor is counted by reserved already.
			c, _, _ := p.buildChain(job, p.verticalSuccessor(exclude), limits, reserved-1)
			for _, chained := range c.jobs[1:] {
				inPackage[chained.Id()] = true
			}
			reserved += c.len() - 1
			chains = append(chains, c.jobs)
		}
		packages = append(packages, p.place(newPackage(p.graph.Expid(), KindVerticalHorizontal, chains, nil)))
	}
}

// buildHorizontalVerticalPackages takes horizontal groups of jobs and follows each group with layers of
// their children of the same section, for as long as the layers fit within limits. Layers run one after the other.
// The maximum package length bounds both the width of each layer and the number of layers,
// so a package holds at most its square in jobs, within the budget of the pass.
func (p *Packager) buildHorizontalVerticalPackages(jobs []*jobgraph.Job) []*Package {
	if len(jobs) == 0 {
		return nil
	}
	limits := p.constraintsFor(jobs[0].Section())
	var packages []*Package
	cursor := 0
	for {
		first := p.takeHorizontalGroup(jobs, &cursor, limits, 0)
		if len(first) == 0 {
			return packages
		}
		wallclock := maxWallclock(first)
		// Only the first job of a group can be over the limit on its own. It's packaged alone, with nothing layered on it.
		if ok, reason := limits.CheckPackageConstraints(len(first), wallclock, 0); !ok {
			p.metrics.ReportChainStop(reason)
			packages = append(packages, p.place(newPackage(p.graph.Expid(), KindHorizontalVertical, [][]*jobgraph.Job{first}, nil)))
			continue
		}
		layers := [][]*jobgraph.Job{first}
		inPackage := make(map[jobgraph.JobId]bool)
		for _, job := range first {
			inPackage[job.Id()] = true
		}
		reserved := len(first)
		for {
			layer := p.nextLayer(layers[len(layers)-1], inPackage, limits, reserved)
			if len(layer) == 0 {
				break
			}
			layerWallclock := maxWallclock(layer)
			if ok, reason := limits.CheckPackageConstraints(len(layers)+1, wallclock+layerWallclock, 0); !ok {
				p.metrics.ReportChainStop(reason)
				break
			}
			for _, job := range layer {
				inPackage[job.Id()] = true
			}
			layers = append(layers, layer)
			reserved += len(layer)
			wallclock += layerWallclock
		}
		packages = append(packages, p.place(newPackage(p.graph.Expid(), KindHorizontalVertical, layers, nil)))
	}
}

// nextLayer returns the children of previous, of the same section, that can run once the package so far has.
func (p *Packager) nextLayer(
	previous []*jobgraph.Job,
	inPackage map[jobgraph.JobId]bool,
	limits constraints.PackagingConstraints,
	reserved int,
) []*jobgraph.Job {
	var layer []*jobgraph.Job
	inLayer := make(map[jobgraph.JobId]bool)
	processors := 0
	accepted := func(id jobgraph.JobId) bool { return inPackage[id] }
	for _, parent := range previous {
		for _, child := range p.graph.Children(parent) {
			if child.Section() != parent.Section() || inPackage[child.Id()] || inLayer[child.Id()] {
				continue
			}
			if child.Packed || !child.Status.Wrappable() || !p.graph.AllParentsCompleted(child, accepted) {
				continue
			}
			if !p.roomForMore(reserved + len(layer)) {
				return layer
			}
			if ok, reason := limits.CheckPackageConstraints(len(layer)+1, 0, processors+child.Processors); !ok {
				p.metrics.ReportChainStop(reason)
				return layer
			}
			layer = append(layer, child)
			inLayer[child.Id()] = true
			processors += child.Processors
		}
	}
	return layer
}
