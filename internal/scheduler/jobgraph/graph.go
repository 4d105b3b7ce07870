package jobgraph

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

const defaultSortedIndexCacheSize = 16

// Graph is the in-memory job dependency graph of one experiment.
//
// All jobs live in an arena owned by the graph, in the order they were added. Parent and child links
// are ids into that arena. Jobs can be looked up by name or by key.
//
// Graph isn't safe for concurrent use. Packaging mutates the Packed flag of jobs in place.
type Graph struct {
	expid   string
	dates   []string
	members []string
	chunks  []int

	sections       []*Section
	sectionsByName map[string]*Section

	jobs       []*Job
	jobsByName map[string]JobId
	jobsByKey  map[Key]JobId

	// Ordered indices by section expression. Purged whenever sections or jobs are added.
	sortedIndexCache *lru.Cache
}

func NewGraph(expid string, dates []string, members []string, chunks []int) *Graph {
	sortedIndexCache, err := lru.New(defaultSortedIndexCacheSize)
	if err != nil {
		panic(errors.WithStack(err))
	}
	return &Graph{
		expid:            expid,
		dates:            slices.Clone(dates),
		members:          slices.Clone(members),
		chunks:           slices.Clone(chunks),
		sectionsByName:   make(map[string]*Section),
		jobsByName:       make(map[string]JobId),
		jobsByKey:        make(map[Key]JobId),
		sortedIndexCache: sortedIndexCache,
	}
}

// ResizeSortedIndexCache changes the number of ordered indices kept by BuildSortedIndex.
func (g *Graph) ResizeSortedIndexCache(size int) {
	if size <= 0 {
		size = defaultSortedIndexCacheSize
	}
	g.sortedIndexCache.Resize(size)
}

func (g *Graph) Expid() string {
	return g.expid
}

func (g *Graph) Dates() []string {
	return slices.Clone(g.dates)
}

func (g *Graph) Members() []string {
	return slices.Clone(g.members)
}

func (g *Graph) Chunks() []int {
	return slices.Clone(g.chunks)
}

// DateIndex returns the position of date in the date list, or -1 for date-independent jobs.
func (g *Graph) DateIndex(date string) int {
	return slices.Index(g.dates, date)
}

// MemberIndex returns the position of member in the member list, or -1 for member-independent jobs.
func (g *Graph) MemberIndex(member string) int {
	return slices.Index(g.members, member)
}

func (g *Graph) AddSection(section Section) error {
	if _, ok := g.sectionsByName[section.Name]; ok {
		return errors.WithStack(&armadaerrors.ErrAlreadyExists{Type: "section", Value: section.Name})
	}
	s := section
	g.sections = append(g.sections, &s)
	g.sectionsByName[s.Name] = &s
	g.sortedIndexCache.Purge()
	return nil
}

// Section returns the section with the given name.
func (g *Graph) Section(name string) (*Section, bool) {
	s, ok := g.sectionsByName[name]
	return s, ok
}

// Sections returns all sections in the order they were added.
func (g *Graph) Sections() []*Section {
	return slices.Clone(g.sections)
}

// AddJob creates a job for key with the given status.
// Scheduling attributes are copied from the section, which must have been added first.
func (g *Graph) AddJob(key Key, status Status) (*Job, error) {
	section, ok := g.sectionsByName[key.Section]
	if !ok {
		return nil, errors.WithStack(&armadaerrors.ErrNotFound{Type: "section", Value: key.Section})
	}
	if key.Date != "" && !slices.Contains(g.dates, key.Date) {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "date", Value: key.Date, Message: "not in date list"})
	}
	if key.Member != "" && !slices.Contains(g.members, key.Member) {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "member", Value: key.Member, Message: "not in member list"})
	}
	if key.Chunk != 0 && !slices.Contains(g.chunks, key.Chunk) {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{Name: "chunk", Value: strconv.Itoa(key.Chunk), Message: "not in chunk list"})
	}
	name := key.Name(g.expid)
	if _, ok := g.jobsByName[name]; ok {
		return nil, errors.WithStack(&armadaerrors.ErrAlreadyExists{Type: "job", Value: name})
	}
	job := &Job{
		id:         JobId(len(g.jobs)),
		Name:       name,
		Key:        key,
		Status:     status,
		Wallclock:  section.Wallclock,
		Processors: section.Processors,
		Priority:   section.Priority,
	}
	g.jobs = append(g.jobs, job)
	g.jobsByName[name] = job.id
	g.jobsByKey[key] = job.id
	g.sortedIndexCache.Purge()
	return job, nil
}

// AddDependency makes parent a parent of child.
// Self-edges are ignored, as are edges that already exist. Returns true if an edge was added.
func (g *Graph) AddDependency(parent, child *Job) bool {
	if parent.id == child.id || slices.Contains(child.parents, parent.id) {
		return false
	}
	child.parents = append(child.parents, parent.id)
	parent.children = append(parent.children, child.id)
	return true
}

// GetJobByName returns the job with the given name, or an ErrNotFound if there is none.
func (g *Graph) GetJobByName(name string) (*Job, error) {
	id, ok := g.jobsByName[name]
	if !ok {
		return nil, errors.WithStack(&armadaerrors.ErrNotFound{Type: "job", Value: name})
	}
	return g.jobs[id], nil
}

// Lookup returns the job with the given key.
func (g *Graph) Lookup(key Key) (*Job, bool) {
	id, ok := g.jobsByKey[key]
	if !ok {
		return nil, false
	}
	return g.jobs[id], true
}

// Job returns the job with the given id. Panics if the id doesn't belong to this graph.
func (g *Graph) Job(id JobId) *Job {
	return g.jobs[id]
}

// Jobs returns all jobs in insertion order.
func (g *Graph) Jobs() []*Job {
	return slices.Clone(g.jobs)
}

func (g *Graph) NumJobs() int {
	return len(g.jobs)
}

func (g *Graph) Parents(job *Job) []*Job {
	return g.resolve(job.parents)
}

func (g *Graph) Children(job *Job) []*Job {
	return g.resolve(job.children)
}

func (g *Graph) resolve(ids []JobId) []*Job {
	rv := make([]*Job, len(ids))
	for i, id := range ids {
		rv[i] = g.jobs[id]
	}
	return rv
}

// GetReadyJobs returns the jobs that are READY and not yet packed, in insertion order.
// If section is non-empty, only jobs of that section are returned.
func (g *Graph) GetReadyJobs(section string) []*Job {
	var rv []*Job
	for _, job := range g.jobs {
		if job.Status != Ready || job.Packed {
			continue
		}
		if section != "" && job.Key.Section != section {
			continue
		}
		rv = append(rv, job)
	}
	return rv
}

// SectionJobs returns the jobs of section compatible with the given coordinates, in insertion order.
// Unset coordinates match every job, as do axes the section doesn't vary along;
// this is how a per-member job picks up a job synchronized across members, for example.
func (g *Graph) SectionJobs(section string, coordinates Coordinates) []*Job {
	var rv []*Job
	for _, job := range g.jobs {
		if job.Key.Section == section && job.Key.Matches(coordinates) {
			rv = append(rv, job)
		}
	}
	return rv
}

// CalculateDependencyMetadata is CalculateDependencyMetadata using the axes of this graph.
func (g *Graph) CalculateDependencyMetadata(coordinates Coordinates, dependency Dependency) (Coordinates, bool) {
	return CalculateDependencyMetadata(
		coordinates.Chunk, g.chunks,
		coordinates.Member, g.members,
		coordinates.Date, g.dates,
		dependency,
	)
}

// AllParentsCompleted returns true if every parent of job is COMPLETED or accepted by inPackage.
// inPackage may be nil.
func (g *Graph) AllParentsCompleted(job *Job, inPackage func(JobId) bool) bool {
	for _, id := range job.parents {
		if g.jobs[id].Status == Completed {
			continue
		}
		if inPackage != nil && inPackage(id) {
			continue
		}
		return false
	}
	return true
}

// UpdateStatuses promotes WAITING jobs whose parents have all COMPLETED to READY.
// Packed is left alone, so a waiting job already in a package isn't offered again.
// Returns the number of jobs promoted.
func (g *Graph) UpdateStatuses() int {
	promoted := 0
	for _, job := range g.jobs {
		if job.Status == Waiting && g.AllParentsCompleted(job, nil) {
			job.Status = Ready
			promoted++
		}
	}
	return promoted
}

// SetStatus sets the status of the named job. A job that fails is released from its package,
// so it may be packaged again once it's retried.
func (g *Graph) SetStatus(name string, status Status) error {
	job, err := g.GetJobByName(name)
	if err != nil {
		return err
	}
	job.Status = status
	if status == Failed {
		job.Packed = false
	}
	return nil
}

// CountByStatus returns the number of jobs for which the predicate holds.
func (g *Graph) CountByStatus(predicate func(Status) bool) int {
	n := 0
	for _, job := range g.jobs {
		if predicate(job.Status) {
			n++
		}
	}
	return n
}
