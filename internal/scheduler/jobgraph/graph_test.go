package jobgraph

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

const testExpid = "expid"

type testSection struct {
	Section
	dependencies string
}

func chunkSection(name string, wallclock time.Duration, dependencies string) testSection {
	return testSection{Section: Section{Name: name, Running: RunningChunk, Wallclock: wallclock}, dependencies: dependencies}
}

// newTestGraph instantiates every section over the axes and wires up the dependencies.
// Jobs without parents start READY, all others WAITING.
func newTestGraph(t *testing.T, dates []string, members []string, numChunks int, sections ...testSection) *Graph {
	chunks := make([]int, numChunks)
	for i := range chunks {
		chunks[i] = i + 1
	}
	g := NewGraph(testExpid, dates, members, chunks)
	for _, s := range sections {
		require.NoError(t, g.AddSection(s.Section))
	}
	for _, s := range sections {
		for _, key := range s.Keys(dates, members, chunks) {
			_, err := g.AddJob(key, Waiting)
			require.NoError(t, err)
		}
	}
	for _, s := range sections {
		var dependencies []Dependency
		for _, token := range strings.Fields(s.dependencies) {
			dependency, err := ParseDependency(token)
			require.NoError(t, err)
			dependencies = append(dependencies, dependency)
		}
		for _, job := range g.SectionJobs(s.Name, Coordinates{}) {
			_, err := g.AddDependencies(job, dependencies)
			require.NoError(t, err)
		}
	}
	g.UpdateStatuses()
	return g
}

func basicSections() []testSection {
	return []testSection{
		{Section: Section{Name: "s1", Running: RunningMember, Wallclock: 50 * time.Minute}},
		chunkSection("s2", 10*time.Minute, "s1 s2-1"),
		chunkSection("s3", 20*time.Minute, "s2"),
		chunkSection("s4", 30*time.Minute, "s3"),
	}
}

func names(jobs []*Job) []string {
	rv := make([]string, len(jobs))
	for i, job := range jobs {
		rv[i] = job.Name
	}
	return rv
}

func jobName(parts ...interface{}) string {
	s := make([]string, 0, len(parts)+1)
	s = append(s, testExpid)
	for _, part := range parts {
		s = append(s, fmt.Sprint(part))
	}
	return strings.Join(s, "_")
}

func TestAddJob(t *testing.T) {
	g := NewGraph(testExpid, []string{"d1"}, []string{"m1"}, []int{1, 2})
	require.NoError(t, g.AddSection(Section{Name: "s2", Running: RunningChunk, Wallclock: 10 * time.Minute, Priority: 3}))

	err := g.AddSection(Section{Name: "s2"})
	var alreadyExists *armadaerrors.ErrAlreadyExists
	assert.ErrorAs(t, err, &alreadyExists)

	job, err := g.AddJob(Key{Section: "s2", Date: "d1", Member: "m1", Chunk: 1}, Ready)
	require.NoError(t, err)
	assert.Equal(t, "expid_d1_m1_1_s2", job.Name)
	assert.Equal(t, JobId(0), job.Id())
	assert.Equal(t, 10*time.Minute, job.Wallclock)
	assert.Equal(t, 3, job.Priority)

	tests := map[string]struct {
		key      Key
		expected interface{}
	}{
		"unknown section": {key: Key{Section: "s9"}, expected: &armadaerrors.ErrNotFound{}},
		"unknown date":    {key: Key{Section: "s2", Date: "d9"}, expected: &armadaerrors.ErrInvalidArgument{}},
		"unknown member":  {key: Key{Section: "s2", Member: "m9"}, expected: &armadaerrors.ErrInvalidArgument{}},
		"unknown chunk":   {key: Key{Section: "s2", Chunk: 3}, expected: &armadaerrors.ErrInvalidArgument{}},
		"duplicate":       {key: Key{Section: "s2", Date: "d1", Member: "m1", Chunk: 1}, expected: &armadaerrors.ErrAlreadyExists{}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := g.AddJob(tc.key, Waiting)
			require.Error(t, err)
			switch tc.expected.(type) {
			case *armadaerrors.ErrNotFound:
				var e *armadaerrors.ErrNotFound
				assert.ErrorAs(t, err, &e)
			case *armadaerrors.ErrInvalidArgument:
				var e *armadaerrors.ErrInvalidArgument
				assert.ErrorAs(t, err, &e)
			case *armadaerrors.ErrAlreadyExists:
				var e *armadaerrors.ErrAlreadyExists
				assert.ErrorAs(t, err, &e)
			}
		})
	}
	assert.Equal(t, 1, g.NumJobs())
}

func TestGetJobByName(t *testing.T) {
	g := newTestGraph(t, []string{"d1"}, []string{"m1", "m2"}, 2, basicSections()...)

	job, err := g.GetJobByName("expid_d1_m2_2_s3")
	require.NoError(t, err)
	assert.Equal(t, Key{Section: "s3", Date: "d1", Member: "m2", Chunk: 2}, job.Key)

	byKey, ok := g.Lookup(job.Key)
	require.True(t, ok)
	assert.Same(t, job, byKey)
	assert.Same(t, job, g.Job(job.Id()))

	_, err = g.GetJobByName("expid_d1_m3_2_s3")
	assert.True(t, armadaerrors.IsNotFound(err))
	_, ok = g.Lookup(Key{Section: "s3"})
	assert.False(t, ok)
}

func TestAddDependencies(t *testing.T) {
	g := newTestGraph(t, []string{"d1"}, []string{"m1", "m2"}, 3, basicSections()...)

	tests := map[string]struct {
		job      string
		parents  []string
		children []string
	}{
		"member section": {
			job:      "expid_d1_m1_s1",
			children: []string{"expid_d1_m1_1_s2", "expid_d1_m1_2_s2", "expid_d1_m1_3_s2"},
		},
		"first chunk": {
			job:      "expid_d1_m1_1_s2",
			parents:  []string{"expid_d1_m1_s1"},
			children: []string{"expid_d1_m1_2_s2", "expid_d1_m1_1_s3"},
		},
		"middle chunk": {
			job:      "expid_d1_m2_2_s2",
			parents:  []string{"expid_d1_m2_s1", "expid_d1_m2_1_s2"},
			children: []string{"expid_d1_m2_3_s2", "expid_d1_m2_2_s3"},
		},
		"last chunk": {
			job:      "expid_d1_m1_3_s4",
			parents:  []string{"expid_d1_m1_3_s3"},
			children: []string{},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			job, err := g.GetJobByName(tc.job)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.parents, names(g.Parents(job)))
			assert.ElementsMatch(t, tc.children, names(g.Children(job)))
			assert.Equal(t, len(tc.parents), job.NumParents())
			assert.Equal(t, len(tc.children), job.NumChildren())
		})
	}
}

func TestAddDependency_IgnoresSelfAndDuplicates(t *testing.T) {
	g := newTestGraph(t, nil, nil, 1, chunkSection("s2", 10*time.Minute, ""))
	job, err := g.GetJobByName("expid_1_s2")
	require.NoError(t, err)
	assert.False(t, g.AddDependency(job, job))
	assert.Empty(t, g.Parents(job))

	// A next-chunk dependency on the only chunk resolves to the job itself.
	added, err := g.AddDependencies(job, []Dependency{{Section: "s2", Sign: Next, Distance: 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Empty(t, g.Children(job))

	_, err = g.AddDependencies(job, []Dependency{{Section: "s9"}})
	assert.True(t, armadaerrors.IsNotFound(err))
}

func TestAddDependencies_Synchronized(t *testing.T) {
	sections := []testSection{
		chunkSection("s2", 10*time.Minute, "s2-1"),
		{Section: Section{Name: "s5", Running: RunningChunk, Synchronize: SynchronizeDate}, dependencies: "s2"},
		{Section: Section{Name: "s6", Running: RunningChunk, Synchronize: SynchronizeMember}, dependencies: "s2"},
		{Section: Section{Name: "s7", Running: RunningOnce}, dependencies: "s5"},
	}
	g := newTestGraph(t, []string{"d1", "d2"}, []string{"m1", "m2"}, 2, sections...)

	s5, err := g.GetJobByName("expid_1_s5")
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"expid_d1_m1_1_s2", "expid_d1_m2_1_s2", "expid_d2_m1_1_s2", "expid_d2_m2_1_s2"},
		names(g.Parents(s5)),
	)

	s6, err := g.GetJobByName("expid_d2_2_s6")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"expid_d2_m1_2_s2", "expid_d2_m2_2_s2"}, names(g.Parents(s6)))

	s7, err := g.GetJobByName("expid_s7")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"expid_1_s5", "expid_2_s5"}, names(g.Parents(s7)))
}

func TestGetReadyJobs(t *testing.T) {
	g := newTestGraph(t, []string{"d1", "d2"}, []string{"m1", "m2"}, 2, basicSections()...)
	assert.Equal(t,
		[]string{"expid_d1_m1_s1", "expid_d1_m2_s1", "expid_d2_m1_s1", "expid_d2_m2_s1"},
		names(g.GetReadyJobs("")),
	)
	assert.Empty(t, g.GetReadyJobs("s2"))

	for _, name := range []string{"expid_d1_m1_s1", "expid_d1_m2_s1"} {
		require.NoError(t, g.SetStatus(name, Completed))
	}
	assert.Equal(t, 2, g.UpdateStatuses())
	assert.Equal(t, []string{"expid_d1_m1_1_s2", "expid_d1_m2_1_s2"}, names(g.GetReadyJobs("s2")))

	job, err := g.GetJobByName("expid_d1_m1_1_s2")
	require.NoError(t, err)
	job.Packed = true
	assert.Equal(t, []string{"expid_d1_m2_1_s2"}, names(g.GetReadyJobs("s2")))
	assert.Equal(t,
		[]string{"expid_d2_m1_s1", "expid_d2_m2_s1", "expid_d1_m2_1_s2"},
		names(g.GetReadyJobs("")),
	)
}

func TestUpdateStatuses(t *testing.T) {
	g := newTestGraph(t, []string{"d1"}, []string{"m1"}, 3, basicSections()...)
	assert.Equal(t, 0, g.UpdateStatuses())

	require.NoError(t, g.SetStatus("expid_d1_m1_s1", Completed))
	require.NoError(t, g.SetStatus("expid_d1_m1_1_s2", StatusRunning))
	assert.Equal(t, 0, g.UpdateStatuses())

	require.NoError(t, g.SetStatus("expid_d1_m1_1_s2", Completed))
	assert.Equal(t, 2, g.UpdateStatuses())
	assert.Equal(t, []string{"expid_d1_m1_2_s2", "expid_d1_m1_1_s3"}, names(g.GetReadyJobs("")))
	assert.Equal(t, 2, g.CountByStatus(func(s Status) bool { return s == Completed }))
}

func TestSetStatus(t *testing.T) {
	g := newTestGraph(t, []string{"d1"}, []string{"m1"}, 1, basicSections()...)
	job, err := g.GetJobByName("expid_d1_m1_s1")
	require.NoError(t, err)

	job.Packed = true
	require.NoError(t, g.SetStatus(job.Name, Submitted))
	assert.True(t, job.Packed)

	require.NoError(t, g.SetStatus(job.Name, Failed))
	assert.False(t, job.Packed)
	assert.Equal(t, Failed, job.Status)

	assert.True(t, armadaerrors.IsNotFound(g.SetStatus("nope", Ready)))
}
