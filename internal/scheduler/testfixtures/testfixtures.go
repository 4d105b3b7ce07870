package testfixtures

// This file contains test fixtures to be used throughout the tests of the packager and its dependencies.
import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/packager/internal/scheduler/configuration"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
	"github.com/armadaproject/packager/internal/workflow"
)

const (
	TestExpid    = "expid"
	TestPlatform = "testPlatform"
	// Large enough to never be the limit unless a test sets it.
	TestMaxJobs = 1000
)

var (
	TestDates   = []string{"d1", "d2"}
	TestMembers = []string{"m1", "m2"}
)

// BasicDefinition is a member section followed by three chunk sections, each depending on the one before it:
// s1 (00:50, per member), s2 (00:10, on s1 and the previous s2), s3 (00:20, on s2) and s4 (00:30, on s3).
func BasicDefinition(dates []string, numChunks int) workflow.Definition {
	return workflow.Definition{
		Expid:     TestExpid,
		Dates:     dates,
		Members:   TestMembers,
		ChunkIni:  1,
		NumChunks: numChunks,
		Sections: workflow.SectionDefinitions{
			{Name: "s1", Running: "member", Wallclock: "00:50"},
			{Name: "s2", Running: "chunk", Wallclock: "00:10", Dependencies: "s1 s2-1"},
			{Name: "s3", Running: "chunk", Wallclock: "00:20", Dependencies: "s2"},
			{Name: "s4", Running: "chunk", Wallclock: "00:30", Dependencies: "s3"},
		},
	}
}

// NewGraph generates the graph of def with every job WAITING and unpacked,
// so that tests can set exactly the statuses they need.
func NewGraph(def workflow.Definition) *jobgraph.Graph {
	g, err := workflow.Generate(def)
	if err != nil {
		panic(err)
	}
	for _, job := range g.Jobs() {
		job.Status = jobgraph.Waiting
		job.Packed = false
	}
	return g
}

// WithStatus sets the status of every named job. Names are given without the experiment prefix.
func WithStatus(g *jobgraph.Graph, status jobgraph.Status, names ...string) *jobgraph.Graph {
	for _, name := range names {
		if err := g.SetStatus(JobName(name), status); err != nil {
			panic(err)
		}
	}
	return g
}

// WithStatusWhere sets the status of every job the predicate holds for.
func WithStatusWhere(g *jobgraph.Graph, status jobgraph.Status, predicate func(*jobgraph.Job) bool) *jobgraph.Graph {
	for _, job := range g.Jobs() {
		if predicate(job) {
			job.Status = status
		}
	}
	return g
}

// InSection returns a predicate matching jobs of section at the given coordinates.
// Unset coordinates match anything.
func InSection(section string, coordinates jobgraph.Coordinates) func(*jobgraph.Job) bool {
	return func(job *jobgraph.Job) bool {
		return job.Section() == section && job.Key.Matches(coordinates)
	}
}

// JobName prefixes name with the test experiment id.
func JobName(name string) string {
	return TestExpid + "_" + name
}

// JobNames builds the names of the jobs of sections for date, member and chunks first to last,
// interleaving the sections chunk by chunk, e.g., "d1_m1_1_s2", "d1_m1_1_s3", "d1_m1_2_s2".
func JobNames(date, member string, first, last int, sections ...string) []string {
	var rv []string
	for chunk := first; chunk <= last; chunk++ {
		for _, section := range sections {
			rv = append(rv, JobName(strings.Join([]string{date, member, fmt.Sprint(chunk), section}, "_")))
		}
	}
	return rv
}

// Platform returns a platform accepting maxJobs more jobs with packages of up to maxWallclock.
func Platform(maxJobs int, maxWallclock time.Duration) configuration.PlatformConfig {
	return configuration.PlatformConfig{
		Name:           TestPlatform,
		MaxWaitingJobs: maxJobs,
		TotalJobs:      maxJobs,
		MaxWallclock:   maxWallclock,
	}
}

// Wrapper returns a wrapper config of the named type wrapping sections.
func Wrapper(wrapperType string, sections string) configuration.WrapperConfig {
	t, err := configuration.ParseWrapperType(wrapperType)
	if err != nil {
		panic(errors.WithMessage(err, "bad test wrapper type"))
	}
	return configuration.WrapperConfig{Type: t, JobsInWrapper: sections}
}
