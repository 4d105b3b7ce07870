package workflow

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
	"github.com/armadaproject/packager/internal/common/wallclock"
	"github.com/armadaproject/packager/internal/scheduler/jobgraph"
)

// Definition is the workflow of one experiment: the axes it runs over and the sections run at each point.
type Definition struct {
	Expid   string   `yaml:"expid"`
	Dates   []string `yaml:"dates"`
	Members []string `yaml:"members"`
	// First chunk number; defaults to 1.
	ChunkIni  int `yaml:"chunkIni"`
	NumChunks int `yaml:"numChunks"`
	// Sections in the order they're declared, which is the order their jobs are created in.
	Sections SectionDefinitions `yaml:"sections"`
}

// SectionDefinition is a section as written in the definition file.
type SectionDefinition struct {
	Name        string `yaml:"-"`
	Running     string `yaml:"running"`
	Synchronize string `yaml:"synchronize,omitempty"`
	// Whitespace-separated dependency tokens, e.g., "s1 s2-1".
	Dependencies string `yaml:"dependencies,omitempty"`
	Wallclock    string `yaml:"wallclock,omitempty"`
	Processors   int    `yaml:"processors,omitempty"`
	Priority     int    `yaml:"priority,omitempty"`
	MaxWrapped   int    `yaml:"maxWrapped,omitempty"`
}

// SectionDefinitions is a YAML mapping from section name to section that remembers the order of its keys.
type SectionDefinitions []SectionDefinition

func (s *SectionDefinitions) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var items yaml.MapSlice
	if err := unmarshal(&items); err != nil {
		return err
	}
	sections := make(SectionDefinitions, 0, len(items))
	for _, item := range items {
		name := fmt.Sprint(item.Key)
		// Decode each value on its own so fields are matched strictly.
		data, err := yaml.Marshal(item.Value)
		if err != nil {
			return errors.WithStack(err)
		}
		var section SectionDefinition
		if err := yaml.UnmarshalStrict(data, &section); err != nil {
			return errors.WithMessagef(err, "section %s", name)
		}
		section.Name = name
		sections = append(sections, section)
	}
	*s = sections
	return nil
}

func (s SectionDefinitions) MarshalYAML() (interface{}, error) {
	items := make(yaml.MapSlice, len(s))
	for i, section := range s {
		items[i] = yaml.MapItem{Key: section.Name, Value: section}
	}
	return items, nil
}

// Parse decodes a definition from YAML. Unknown fields are rejected.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.UnmarshalStrict(data, &def); err != nil {
		return def, errors.WithStack(err)
	}
	return def, nil
}

// Load reads the definition file at path.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, errors.WithStack(err)
	}
	def, err := Parse(data)
	if err != nil {
		return def, errors.WithMessagef(err, "failed to parse workflow definition %s", path)
	}
	return def, nil
}

// Chunks returns the chunk numbers of the experiment.
func (d Definition) Chunks() []int {
	ini := d.ChunkIni
	if ini <= 0 {
		ini = 1
	}
	var chunks []int
	for i := 0; i < d.NumChunks; i++ {
		chunks = append(chunks, ini+i)
	}
	return chunks
}

// Section returns the definition of the named section.
func (d Definition) Section(name string) (SectionDefinition, bool) {
	for _, section := range d.Sections {
		if section.Name == name {
			return section, true
		}
	}
	return SectionDefinition{}, false
}

// Validate reports every problem with the definition at once.
func (d Definition) Validate() error {
	var result *multierror.Error
	if d.NumChunks < 0 {
		result = multierror.Append(result, configurationError("numChunks", d.NumChunks, "must not be negative"))
	}
	if duplicate, ok := firstDuplicate(d.Dates); ok {
		result = multierror.Append(result, configurationError("dates", duplicate, "duplicate date"))
	}
	if duplicate, ok := firstDuplicate(d.Members); ok {
		result = multierror.Append(result, configurationError("members", duplicate, "duplicate member"))
	}
	names := make([]string, len(d.Sections))
	for i, section := range d.Sections {
		names[i] = section.Name
	}
	if duplicate, ok := firstDuplicate(names); ok {
		result = multierror.Append(result, configurationError("sections", duplicate, "duplicate section"))
	}
	for _, section := range d.Sections {
		if _, _, err := d.compile(section); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// compile converts a section definition into a graph section and its parsed dependencies.
func (d Definition) compile(def SectionDefinition) (jobgraph.Section, []jobgraph.Dependency, error) {
	var result *multierror.Error
	field := func(name string) string { return "sections." + def.Name + "." + name }

	section := jobgraph.Section{
		Name:       def.Name,
		Processors: def.Processors,
		Priority:   def.Priority,
		MaxWrapped: def.MaxWrapped,
	}
	running, err := jobgraph.ParseRunning(def.Running)
	if err != nil {
		result = multierror.Append(result, configurationError(field("running"), def.Running, "expected once, date, member or chunk"))
	}
	section.Running = running
	synchronize, err := jobgraph.ParseSynchronize(def.Synchronize)
	if err != nil {
		result = multierror.Append(result, configurationError(field("synchronize"), def.Synchronize, "expected date or member"))
	} else if synchronize != jobgraph.SynchronizeNone && running != jobgraph.RunningChunk {
		result = multierror.Append(result, configurationError(field("synchronize"), def.Synchronize, "only chunk sections can be synchronized"))
	}
	section.Synchronize = synchronize
	section.Wallclock, err = wallclock.Parse(def.Wallclock)
	if err != nil {
		result = multierror.Append(result, configurationError(field("wallclock"), def.Wallclock, "expected HH:MM"))
	}
	if def.Processors < 0 || def.MaxWrapped < 0 {
		result = multierror.Append(result, configurationError(field("processors"), def.Processors, "processors and maxWrapped must not be negative"))
	}

	var dependencies []jobgraph.Dependency
	for _, token := range strings.Fields(def.Dependencies) {
		dependency, err := jobgraph.ParseDependency(token)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, ok := d.Section(dependency.Section); !ok {
			result = multierror.Append(result, configurationError(field("dependencies"), token, "depends on undefined section "+dependency.Section))
			continue
		}
		dependencies = append(dependencies, dependency)
	}
	return section, dependencies, result.ErrorOrNil()
}

func configurationError(field string, value interface{}, message string) error {
	return errors.WithStack(&armadaerrors.ErrConfiguration{Field: field, Value: value, Message: message})
}

func firstDuplicate(values []string) (string, bool) {
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		if seen[value] {
			return value, true
		}
		seen[value] = true
	}
	return "", false
}
