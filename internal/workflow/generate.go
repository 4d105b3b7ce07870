package workflow

import (
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// Generate builds the job graph of a definition.
//
// Sections are instantiated in declaration order, then dependencies are resolved job by job.
// Jobs start WAITING, except those without parents which start READY.
func Generate(def Definition) (*jobgraph.Graph, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	g := jobgraph.NewGraph(def.Expid, def.Dates, def.Members, def.Chunks())

	dependenciesBySection := make(map[string][]jobgraph.Dependency, len(def.Sections))
	for _, sectionDef := range def.Sections {
		section, dependencies, err := def.compile(sectionDef)
		if err != nil {
			return nil, err
		}
		if err := g.AddSection(section); err != nil {
			return nil, err
		}
		dependenciesBySection[section.Name] = dependencies
	}
	for _, section := range g.Sections() {
		for _, key := range section.Keys(g.Dates(), g.Members(), g.Chunks()) {
			if _, err := g.AddJob(key, jobgraph.Waiting); err != nil {
				return nil, err
			}
		}
	}
	edges := 0
	for _, section := range g.Sections() {
		for _, job := range g.SectionJobs(section.Name, jobgraph.Coordinates{}) {
			added, err := g.AddDependencies(job, dependenciesBySection[section.Name])
			if err != nil {
				return nil, err
			}
			edges += added
		}
	}
	ready := g.UpdateStatuses()
	log.WithFields(log.Fields{
		"expid":    def.Expid,
		"sections": len(def.Sections),
		"jobs":     g.NumJobs(),
		"edges":    edges,
		"ready":    ready,
	}).Info("generated job graph")
	return g, nil
}
