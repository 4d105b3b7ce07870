package jobgraph

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

// Sign of a dependency offset.
type Sign int

const (
	NoOffset Sign = iota
	Previous      // "-", e.g., "sim-1" is the previous chunk of sim
	Next          // "+", e.g., "sim+1" is the next chunk of sim
)

// Dependency describes an edge of the workflow definition before it's resolved into concrete parents.
type Dependency struct {
	// Section depended on.
	Section string
	// How many steps along the axis to move; only meaningful if Sign isn't NoOffset.
	Distance int
	Sign     Sign
	// Axis the depended-on section runs along. Decides which axis the offset applies to.
	Running Running
}

// ParseDependency parses a single dependency token such as "s1", "s2-1" or "s2+2".
// Running isn't part of the token and has to be filled in by the caller from the referenced section.
func ParseDependency(token string) (Dependency, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Dependency{}, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "dependency",
			Value:   token,
			Message: "empty dependency",
		})
	}
	i := strings.LastIndexAny(token, "+-")
	if i <= 0 || i == len(token)-1 {
		return Dependency{Section: token}, nil
	}
	distance, err := strconv.Atoi(token[i+1:])
	if err != nil {
		// Not an offset, e.g., a section called "post-proc".
		return Dependency{Section: token}, nil
	}
	dependency := Dependency{Section: token[:i], Distance: distance, Sign: Next}
	if token[i] == '-' {
		dependency.Sign = Previous
	}
	return dependency, nil
}

func (d Dependency) String() string {
	switch d.Sign {
	case Previous:
		return d.Section + "-" + strconv.Itoa(d.Distance)
	case Next:
		return d.Section + "+" + strconv.Itoa(d.Distance)
	}
	return d.Section
}

// CalculateDependencyMetadata resolves the coordinates of the job referenced by dependency from a job at
// (date, member, chunk).
//
// A "-" offset moves backwards along the finest axis that both the job has and the referenced section
// runs along: chunk, then member, then date. Moving past the start of the axis sets skip, meaning
// there is no such predecessor and no edge should be added.
//
// A "+" offset moves forwards in the same way. Past the end of the member or date axis it skips,
// but past the end of the chunk axis it settles for the furthest chunk that exists, which may be the
// job's own chunk.
func CalculateDependencyMetadata(
	chunk int, chunkList []int,
	member string, memberList []string,
	date string, dateList []string,
	dependency Dependency,
) (coordinates Coordinates, skip bool) {
	coordinates = Coordinates{Date: date, Member: member, Chunk: chunk}
	if dependency.Sign == NoOffset || dependency.Distance == 0 {
		return coordinates, false
	}
	running := dependency.Running
	switch dependency.Sign {
	case Previous:
		switch {
		case chunk != 0 && running == RunningChunk:
			i := slices.Index(chunkList, chunk)
			if i < dependency.Distance {
				return coordinates, true
			}
			coordinates.Chunk = chunkList[i-dependency.Distance]
		case member != "" && (running == RunningChunk || running == RunningMember):
			i := slices.Index(memberList, member)
			if i < dependency.Distance {
				return coordinates, true
			}
			coordinates.Member = memberList[i-dependency.Distance]
		case date != "" && running != RunningOnce:
			i := slices.Index(dateList, date)
			if i < dependency.Distance {
				return coordinates, true
			}
			coordinates.Date = dateList[i-dependency.Distance]
		}
	case Next:
		switch {
		case chunk != 0 && running == RunningChunk:
			i := slices.Index(chunkList, chunk)
			if i < 0 {
				return coordinates, true
			}
			j := i + dependency.Distance
			if j >= len(chunkList) {
				j = len(chunkList) - 1
			}
			coordinates.Chunk = chunkList[j]
		case member != "" && (running == RunningChunk || running == RunningMember):
			i := slices.Index(memberList, member)
			if i < 0 || i+dependency.Distance >= len(memberList) {
				return coordinates, true
			}
			coordinates.Member = memberList[i+dependency.Distance]
		case date != "" && running != RunningOnce:
			i := slices.Index(dateList, date)
			if i < 0 || i+dependency.Distance >= len(dateList) {
				return coordinates, true
			}
			coordinates.Date = dateList[i+dependency.Distance]
		}
	}
	return coordinates, false
}

// AddDependencies resolves each dependency relative to job and adds the jobs it refers to as parents.
// Dependencies that resolve outside the axes are skipped. Running is taken from the referenced section,
// which must exist. Returns the number of edges added.
func (g *Graph) AddDependencies(job *Job, dependencies []Dependency) (int, error) {
	added := 0
	for _, dependency := range dependencies {
		section, ok := g.sectionsByName[dependency.Section]
		if !ok {
			return added, errors.WithStack(&armadaerrors.ErrNotFound{
				Type:    "section",
				Value:   dependency.Section,
				Message: "dependency of " + job.Name,
			})
		}
		dependency.Running = section.Running
		coordinates, skip := g.CalculateDependencyMetadata(job.Key.Coordinates(), dependency)
		if skip {
			continue
		}
		for _, parent := range g.SectionJobs(dependency.Section, coordinates) {
			if g.AddDependency(parent, job) {
				added++
			}
		}
	}
	return added, nil
}
