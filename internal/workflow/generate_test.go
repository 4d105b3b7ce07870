package workflow

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

func parentNames(t *testing.T, g *jobgraph.Graph, name string) []string {
	job, err := g.GetJobByName(name)
	require.NoError(t, err)
	var rv []string
	for _, parent := range g.Parents(job) {
		rv = append(rv, parent.Name)
	}
	sort.Strings(rv)
	return rv
}

func TestGenerate(t *testing.T) {
	def, err := Load("testdata/workflow.yaml")
	require.NoError(t, err)
	g, err := Generate(def)
	require.NoError(t, err)

	// sim: 2 dates x 2 members x 3 chunks, ini: 2 x 2, post: 12, clean: 2 dates x 3 chunks, report: 1.
	assert.Equal(t, 12+4+12+6+1, g.NumJobs())
	assert.Equal(t, "a000", g.Expid())

	tests := map[string]struct {
		parents []string
		status  jobgraph.Status
	}{
		"a000_d1_m1_ini": {
			status: jobgraph.Ready,
		},
		"a000_d1_m1_1_sim": {
			parents: []string{"a000_d1_m1_ini"},
			status:  jobgraph.Waiting,
		},
		"a000_d1_m1_2_sim": {
			parents: []string{"a000_d1_m1_1_sim", "a000_d1_m1_ini"},
			status:  jobgraph.Waiting,
		},
		"a000_d2_m2_3_post": {
			parents: []string{"a000_d2_m2_3_sim"},
			status:  jobgraph.Waiting,
		},
		"a000_d1_2_clean": {
			parents: []string{"a000_d1_m1_2_post", "a000_d1_m2_2_post"},
			status:  jobgraph.Waiting,
		},
		"a000_report": {
			parents: []string{
				"a000_d1_1_clean", "a000_d1_2_clean", "a000_d1_3_clean",
				"a000_d2_1_clean", "a000_d2_2_clean", "a000_d2_3_clean",
			},
			status: jobgraph.Waiting,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			job, err := g.GetJobByName(name)
			require.NoError(t, err)
			assert.Equal(t, tc.status, job.Status)
			assert.Equal(t, tc.parents, parentNames(t, g, name))
		})
	}

	sim, err := g.GetJobByName("a000_d1_m1_1_sim")
	require.NoError(t, err)
	assert.Equal(t, 4, sim.Processors)
	post, err := g.GetJobByName("a000_d1_m1_1_post")
	require.NoError(t, err)
	assert.Equal(t, 3, post.Priority)
	section, ok := g.Section("sim")
	require.True(t, ok)
	assert.Equal(t, 2, section.MaxWrapped)
}

func TestGenerate_NoDatesOrMembers(t *testing.T) {
	def := Definition{
		Expid:     "a000",
		NumChunks: 2,
		Sections: SectionDefinitions{
			{Name: "ini", Running: "date"},
			{Name: "sim", Running: "chunk", Dependencies: "ini sim-1"},
		},
	}
	g, err := Generate(def)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumJobs())
	assert.Equal(t, []string{"a000_1_sim", "a000_ini"}, parentNames(t, g, "a000_2_sim"))
	assert.Equal(t, []string{"a000_ini"}, parentNames(t, g, "a000_1_sim"))
	assert.Len(t, g.GetReadyJobs(""), 1)
}

func TestGenerate_InvalidDefinition(t *testing.T) {
	def := Definition{
		Expid:     "a000",
		NumChunks: 2,
		Sections: SectionDefinitions{
			{Name: "sim", Running: "chunk", Dependencies: "ini"},
		},
	}
	g, err := Generate(def)
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, armadaerrors.IsConfiguration(err))
}
