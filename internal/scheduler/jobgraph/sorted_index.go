package jobgraph

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

// SortedIndex maps date to member to the jobs of some set of sections, in the order they'd run.
// Date- and member-independent graphs use a single "" bucket for that axis.
// Indices are shared through a cache and must not be modified.
type SortedIndex map[string]map[string][]*Job

// Sequence returns the ordered jobs of the (date, member) bucket.
func (index SortedIndex) Sequence(date, member string) []*Job {
	return index[date][member]
}

// BuildSortedIndex interleaves the jobs of the whitespace-separated sections into one sequence
// per (date, member).
//
// Each sequence walks the chunks in order and, for every chunk, appends the jobs of the sections at
// that chunk in the order the sections were given. Each job appears in exactly one bucket, the one
// BucketOf returns: jobs shared across dates or members, such as synchronized or once jobs,
// go to the last date or member they're shared by. Jobs that don't vary by chunk come last.
func (g *Graph) BuildSortedIndex(sections string) (SortedIndex, error) {
	names := strings.Fields(sections)
	cacheKey := strings.Join(names, " ")
	if index, ok := g.sortedIndexCache.Get(cacheKey); ok {
		return index.(SortedIndex), nil
	}
	for _, name := range names {
		if _, ok := g.sectionsByName[name]; !ok {
			return nil, errors.WithStack(&armadaerrors.ErrNotFound{
				Type:    "section",
				Value:   name,
				Message: "can't build ordered index",
			})
		}
	}

	// Jobs of each requested section by chunk; chunk 0 holds chunk-independent jobs.
	jobsBySectionAndChunk := make(map[string]map[int][]*Job, len(names))
	for _, name := range names {
		jobsBySectionAndChunk[name] = make(map[int][]*Job)
	}
	for _, job := range g.jobs {
		if byChunk, ok := jobsBySectionAndChunk[job.Key.Section]; ok {
			byChunk[job.Key.Chunk] = append(byChunk[job.Key.Chunk], job)
		}
	}

	index := make(SortedIndex)
	for _, date := range g.dateBuckets() {
		index[date] = make(map[string][]*Job)
		for _, member := range g.memberBuckets() {
			bucket := Coordinates{Date: date, Member: member}
			var sequence []*Job
			for _, chunk := range g.chunks {
				for _, name := range names {
					sequence = g.appendInBucket(sequence, jobsBySectionAndChunk[name][chunk], bucket)
				}
			}
			for _, name := range names {
				sequence = g.appendInBucket(sequence, jobsBySectionAndChunk[name][0], bucket)
			}
			index[date][member] = sequence
		}
	}
	g.sortedIndexCache.Add(cacheKey, index)
	return index, nil
}

func (g *Graph) appendInBucket(sequence []*Job, jobs []*Job, bucket Coordinates) []*Job {
	for _, job := range jobs {
		if date, member := g.BucketOf(job); date == bucket.Date && member == bucket.Member {
			sequence = append(sequence, job)
		}
	}
	return sequence
}

// BucketOf returns the (date, member) bucket a job is looked up in.
// A job that doesn't vary by date or member is looked up in the last date or member respectively.
func (g *Graph) BucketOf(job *Job) (string, string) {
	date, member := job.Key.Date, job.Key.Member
	if date == "" && len(g.dates) > 0 {
		date = g.dates[len(g.dates)-1]
	}
	if member == "" && len(g.members) > 0 {
		member = g.members[len(g.members)-1]
	}
	return date, member
}

func (g *Graph) dateBuckets() []string {
	if len(g.dates) == 0 {
		return []string{""}
	}
	return g.dates
}

func (g *Graph) memberBuckets() []string {
	if len(g.members) == 0 {
		return []string{""}
	}
	return g.members
}
