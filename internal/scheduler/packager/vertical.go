package packager

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/armadaproject/packager/internal/scheduler/constraints"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// chain is a package under construction whose jobs run one after the other.
type chain struct {
	jobs      []*jobgraph.Job
	ids       map[jobgraph.JobId]bool
	wallclock time.Duration
}

func newChain(anchor *jobgraph.Job) *chain {
	c := &chain{ids: make(map[jobgraph.JobId]bool)}
	c.add(anchor)
	return c
}

func (c *chain) add(job *jobgraph.Job) {
	c.jobs = append(c.jobs, job)
	c.ids[job.Id()] = true
	c.wallclock += job.Wallclock
}

func (c *chain) contains(id jobgraph.JobId) bool {
	return c.ids[id]
}

func (c *chain) last() *jobgraph.Job {
	return c.jobs[len(c.jobs)-1]
}

func (c *chain) len() int {
	return len(c.jobs)
}

// successorFunc returns the job that should follow the chain, or nil if there is none.
type successorFunc func(c *chain) *jobgraph.Job

// wrappable returns true if job may be appended to c: it hasn't run or been packed yet,
// and everything it depends on has either completed or runs before it in the chain.
func (p *Packager) wrappable(job *jobgraph.Job, c *chain) bool {
	return !job.Packed &&
		job.Status.Wrappable() &&
		!c.contains(job.Id()) &&
		p.graph.AllParentsCompleted(job, c.contains)
}

// verticalSuccessor follows child edges within the section of the last job of the chain.
// Jobs for which exclude returns true are passed over; exclude may be nil.
func (p *Packager) verticalSuccessor(exclude func(jobgraph.JobId) bool) successorFunc {
	return func(c *chain) *jobgraph.Job {
		last := c.last()
		for _, child := range p.graph.Children(last) {
			if child.Section() != last.Section() {
				continue
			}
			if exclude != nil && exclude(child.Id()) {
				continue
			}
			if p.wrappable(child, c) {
				return child
			}
		}
		return nil
	}
}

// mixedSuccessor walks the ordered index of the wrapped sections from just after anchor,
// passing over jobs that can't be wrapped. With cross-date wrapping enabled the walk carries on
// into the same member of later dates.
func (p *Packager) mixedSuccessor(index jobgraph.SortedIndex, anchor *jobgraph.Job) successorFunc {
	sequence := p.mixedSequence(index, anchor)
	cursor := 0
	for i, job := range sequence {
		if job.Id() == anchor.Id() {
			cursor = i + 1
			break
		}
	}
	return func(c *chain) *jobgraph.Job {
		for cursor < len(sequence) {
			job := sequence[cursor]
			cursor++
			if p.wrappable(job, c) {
				return job
			}
		}
		return nil
	}
}

func (p *Packager) mixedSequence(index jobgraph.SortedIndex, anchor *jobgraph.Job) []*jobgraph.Job {
	date, member := p.graph.BucketOf(anchor)
	sequence := index.Sequence(date, member)
	if !p.wrapper.AllowCrossDate {
		return sequence
	}
	dates := p.graph.Dates()
	for i := p.graph.DateIndex(date) + 1; i > 0 && i < len(dates); i++ {
		sequence = append(sequence[:len(sequence):len(sequence)], index.Sequence(dates[i], member)...)
	}
	return sequence
}

// buildChain extends a chain from anchor for as long as next finds a successor that fits within limits.
// reserved is the number of jobs already promised to the package being built, other than this chain.
// Returns the chain, why it stopped if it hit a limit, and the successor that didn't fit, if any.
func (p *Packager) buildChain(
	anchor *jobgraph.Job,
	next successorFunc,
	limits constraints.PackagingConstraints,
	reserved int,
) (*chain, string, *jobgraph.Job) {
	c := newChain(anchor)
	for {
		candidate := next(c)
		if candidate == nil {
			return c, "", nil
		}
		if ok, reason := p.constraints.CheckRoundConstraints(p.numPacked + reserved + c.len()); !ok {
			p.metrics.ReportChainStop(reason)
			return c, reason, candidate
		}
		if ok, reason := limits.CheckPackageConstraints(c.len()+1, c.wallclock+candidate.Wallclock, 0); !ok {
			p.metrics.ReportChainStop(reason)
			return c, reason, candidate
		}
		c.add(candidate)
	}
}

type anchor struct {
	job       *jobgraph.Job
	dependsOn *Package
}

// buildVerticalPackages builds one chain per anchor, in order. Jobs already pulled into an earlier chain
// aren't anchors any more. With remote dependencies enabled, a chain cut short by a limit is continued by a
// new package, anchored at the job that didn't fit, which depends on it.
func (p *Packager) buildVerticalPackages(jobs []*jobgraph.Job, mixed bool) ([]*Package, error) {
	var index jobgraph.SortedIndex
	if mixed {
		var err error
		index, err = p.graph.BuildSortedIndex(p.wrapper.SectionExpression())
		if err != nil {
			return nil, err
		}
		jobs = p.sortMixedAnchors(jobs, index)
	}

	queue := make([]anchor, len(jobs))
	for i, job := range jobs {
		queue[i] = anchor{job: job}
	}
	var packages []*Package
	for i := 0; i < len(queue); i++ {
		a := queue[i]
		if a.job.Packed {
			continue
		}
		if !p.roomForMore(0) {
			break
		}
		next := p.verticalSuccessor(nil)
		if mixed {
			next = p.mixedSuccessor(index, a.job)
		}
		c, reason, pending := p.buildChain(a.job, next, p.constraintsFor(a.job.Section()), 0)
		pkg := p.place(newPackage(p.graph.Expid(), KindVertical, [][]*jobgraph.Job{c.jobs}, a.dependsOn))
		packages = append(packages, pkg)
		if p.wrapper.RemoteDependencies && pending != nil && !constraints.IsTerminalUnpackableReason(reason) {
			p.log.Debugf("continuing %s from %s in a dependent package", pkg.Name(), pending.Name)
			queue = append(queue[:i+1], append([]anchor{{job: pending, dependsOn: pkg}}, queue[i+1:]...)...)
		}
	}
	return packages, nil
}

// sortMixedAnchors orders anchors by date, then member, then position in the interleaved sequence,
// so each chain starts from the earliest ready job of its bucket.
func (p *Packager) sortMixedAnchors(jobs []*jobgraph.Job, index jobgraph.SortedIndex) []*jobgraph.Job {
	type rank struct {
		date, member, position int
	}
	ranks := make(map[jobgraph.JobId]rank, len(jobs))
	for _, job := range jobs {
		date, member := p.graph.BucketOf(job)
		position := len(index.Sequence(date, member))
		for i, other := range index.Sequence(date, member) {
			if other.Id() == job.Id() {
				position = i
				break
			}
		}
		ranks[job.Id()] = rank{date: p.graph.DateIndex(date), member: p.graph.MemberIndex(member), position: position}
	}
	sorted := append([]*jobgraph.Job(nil), jobs...)
	slices.SortStableFunc(sorted, func(a, b *jobgraph.Job) bool {
		ra, rb := ranks[a.Id()], ranks[b.Id()]
		if ra.date != rb.date {
			return ra.date < rb.date
		}
		if ra.member != rb.member {
			return ra.member < rb.member
		}
		return ra.position < rb.position
	})
	return sorted
}
