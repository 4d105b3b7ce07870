package packager

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// testJobs returns a1 and a2 (00:10, 2 processors) and b1 (00:30, 4 processors).
func testJobs(t *testing.T) (a1, a2, b1 *jobgraph.Job) {
	g := jobgraph.NewGraph("expid", nil, nil, []int{1, 2})
	require.NoError(t, g.AddSection(jobgraph.Section{Name: "a", Running: jobgraph.RunningChunk, Wallclock: 10 * time.Minute, Processors: 2}))
	require.NoError(t, g.AddSection(jobgraph.Section{Name: "b", Running: jobgraph.RunningChunk, Wallclock: 30 * time.Minute, Processors: 4}))
	var err error
	a1, err = g.AddJob(jobgraph.Key{Section: "a", Chunk: 1}, jobgraph.Ready)
	require.NoError(t, err)
	a2, err = g.AddJob(jobgraph.Key{Section: "a", Chunk: 2}, jobgraph.Waiting)
	require.NoError(t, err)
	b1, err = g.AddJob(jobgraph.Key{Section: "b", Chunk: 1}, jobgraph.Ready)
	require.NoError(t, err)
	return
}

func TestPackage_WallclockAndProcessors(t *testing.T) {
	a1, a2, b1 := testJobs(t)
	tests := map[string]struct {
		kind       Kind
		groups     [][]*jobgraph.Job
		wallclock  time.Duration
		processors int
	}{
		"simple": {
			kind:       KindSimple,
			groups:     [][]*jobgraph.Job{{b1}},
			wallclock:  30 * time.Minute,
			processors: 4,
		},
		"vertical": {
			kind:       KindVertical,
			groups:     [][]*jobgraph.Job{{a1, a2, b1}},
			wallclock:  50 * time.Minute,
			processors: 4,
		},
		"horizontal": {
			kind:       KindHorizontal,
			groups:     [][]*jobgraph.Job{{a1, a2, b1}},
			wallclock:  30 * time.Minute,
			processors: 8,
		},
		"vertical-horizontal": {
			kind:       KindVerticalHorizontal,
			groups:     [][]*jobgraph.Job{{a1, a2}, {b1}},
			wallclock:  30 * time.Minute,
			processors: 6,
		},
		"horizontal-vertical": {
			kind:       KindHorizontalVertical,
			groups:     [][]*jobgraph.Job{{a1, b1}, {a2}},
			wallclock:  40 * time.Minute,
			processors: 6,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := newPackage("expid", tc.kind, tc.groups, nil)
			assert.Equal(t, tc.kind, p.Kind())
			assert.Equal(t, tc.wallclock, p.TotalWallclock())
			assert.Equal(t, tc.processors, p.Processors())
		})
	}
}

func TestPackage_Identity(t *testing.T) {
	a1, a2, b1 := testJobs(t)

	p := newPackage("expid", KindVertical, [][]*jobgraph.Job{{a1, a2}}, nil)
	assert.Equal(t, []string{"expid_1_a", "expid_2_a"}, p.JobNames())
	assert.Equal(t, 2, p.Len())
	assert.True(t, strings.HasPrefix(p.Name(), "expid_vertical_"))
	assert.Equal(t, p.Id().String()[:8], strings.TrimPrefix(p.Name(), "expid_vertical_"))
	assert.Contains(t, p.String(), "expid_2_a")
	_, ok := p.DependsOn()
	assert.False(t, ok)

	same := newPackage("expid", KindVertical, [][]*jobgraph.Job{{a1, a2}}, nil)
	assert.Equal(t, p.Id(), same.Id())
	assert.True(t, p.Equal(same))

	otherKind := newPackage("expid", KindHorizontal, [][]*jobgraph.Job{{a1, a2}}, nil)
	assert.NotEqual(t, p.Id(), otherKind.Id())
	assert.True(t, p.Equal(otherKind))

	otherJobs := newPackage("expid", KindVertical, [][]*jobgraph.Job{{a1, b1}}, p)
	assert.NotEqual(t, p.Id(), otherJobs.Id())
	assert.False(t, p.Equal(otherJobs))
	dependsOn, ok := otherJobs.DependsOn()
	assert.True(t, ok)
	assert.Equal(t, p.Id(), dependsOn)
	assert.NotEqual(t, uuid.Nil, dependsOn)
}

func TestPackage_GroupsAreCopies(t *testing.T) {
	a1, a2, b1 := testJobs(t)
	p := newPackage("expid", KindHorizontalVertical, [][]*jobgraph.Job{{a1, b1}, {a2}}, nil)

	groups := p.Groups()
	groups[0][0] = a2
	jobs := p.Jobs()
	jobs[0] = b1

	assert.Equal(t, []string{"expid_1_a", "expid_1_b", "expid_2_a"}, p.JobNames())
	assert.Equal(t, a1, p.Groups()[0][0])
}
