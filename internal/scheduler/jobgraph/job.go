package jobgraph

import (
	"time"
)

// JobId is the position of a job in the arena of the graph that owns it.
type JobId int

// Job is a single schedulable unit of work, i.e., one instance of a section at some coordinates.
// Jobs are owned by a Graph; parents and children are stored as ids into that graph.
type Job struct {
	id JobId
	// Unique name derived from the key.
	Name string
	Key  Key
	// Set by the execution engine.
	Status Status
	// Expected runtime, copied from the section.
	Wallclock time.Duration
	// Number of processors requested, copied from the section.
	Processors int
	// Higher values are packaged first among jobs of the same date.
	Priority int
	// True once the job has been placed into a package.
	// Jobs with Packed set aren't offered to subsequent packaging passes.
	Packed bool

	parents  []JobId
	children []JobId
}

func (job *Job) Id() JobId {
	return job.id
}

func (job *Job) Section() string {
	return job.Key.Section
}

func (job *Job) Date() string {
	return job.Key.Date
}

func (job *Job) Member() string {
	return job.Key.Member
}

func (job *Job) Chunk() int {
	return job.Key.Chunk
}

func (job *Job) NumParents() int {
	return len(job.parents)
}

func (job *Job) NumChildren() int {
	return len(job.children)
}

// ParentIds returns a copy of the ids of the parents of this job, in the order the edges were added.
func (job *Job) ParentIds() []JobId {
	return append([]JobId(nil), job.parents...)
}

// ChildIds returns a copy of the ids of the children of this job, in the order the edges were added.
func (job *Job) ChildIds() []JobId {
	return append([]JobId(nil), job.children...)
}

func (job *Job) String() string {
	return job.Name
}
