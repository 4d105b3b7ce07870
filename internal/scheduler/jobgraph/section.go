package jobgraph

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

// Running is the axis a section is instantiated along.
type Running int

const (
	RunningOnce Running = iota
	RunningDate
	RunningMember
	RunningChunk
)

var runningNames = [...]string{
	RunningOnce:   "once",
	RunningDate:   "date",
	RunningMember: "member",
	RunningChunk:  "chunk",
}

func (r Running) String() string {
	if r < 0 || int(r) >= len(runningNames) {
		return "unknown"
	}
	return runningNames[r]
}

// ParseRunning accepts the names returned by Running.String, plus "startdate" as an alias of "date".
func ParseRunning(s string) (Running, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "startdate" {
		return RunningDate, nil
	}
	for i, name := range runningNames {
		if name == s {
			return Running(i), nil
		}
	}
	return 0, errors.WithStack(&armadaerrors.ErrConfiguration{
		Field:   "running",
		Value:   s,
		Message: "expected once, date, member or chunk",
	})
}

// Synchronize declares that the jobs of a chunk section are shared across an axis.
// With SynchronizeDate there is one job per chunk for all dates and members,
// with SynchronizeMember one job per date and chunk for all members.
type Synchronize int

const (
	SynchronizeNone Synchronize = iota
	SynchronizeDate
	SynchronizeMember
)

func (s Synchronize) String() string {
	switch s {
	case SynchronizeNone:
		return ""
	case SynchronizeDate:
		return "date"
	case SynchronizeMember:
		return "member"
	}
	return "unknown"
}

func ParseSynchronize(s string) (Synchronize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SynchronizeNone, nil
	case "date":
		return SynchronizeDate, nil
	case "member":
		return SynchronizeMember, nil
	}
	return 0, errors.WithStack(&armadaerrors.ErrConfiguration{
		Field:   "synchronize",
		Value:   s,
		Message: "expected date or member",
	})
}

// Section is a named step of the workflow. Every job of the graph is an instance of one section.
type Section struct {
	Name        string
	Running     Running
	Synchronize Synchronize
	Wallclock   time.Duration
	Processors  int
	Priority    int
	// Overrides the wrapper's maximum package length for this section if non-zero.
	MaxWrapped int
}

// Keys returns the keys of the jobs this section is instantiated as, in the order they should be created.
// Without dates or members the section is instantiated as if it didn't vary along that axis.
func (s *Section) Keys(dates, members []string, chunks []int) []Key {
	if len(dates) == 0 {
		dates = []string{""}
	}
	if len(members) == 0 {
		members = []string{""}
	}
	var keys []Key
	switch s.Running {
	case RunningOnce:
		keys = append(keys, Key{Section: s.Name})
	case RunningDate:
		for _, date := range dates {
			keys = append(keys, Key{Section: s.Name, Date: date})
		}
	case RunningMember:
		for _, date := range dates {
			for _, member := range members {
				keys = append(keys, Key{Section: s.Name, Date: date, Member: member})
			}
		}
	case RunningChunk:
		switch s.Synchronize {
		case SynchronizeDate:
			for _, chunk := range chunks {
				keys = append(keys, Key{Section: s.Name, Chunk: chunk})
			}
		case SynchronizeMember:
			for _, date := range dates {
				for _, chunk := range chunks {
					keys = append(keys, Key{Section: s.Name, Date: date, Chunk: chunk})
				}
			}
		default:
			for _, date := range dates {
				for _, member := range members {
					for _, chunk := range chunks {
						keys = append(keys, Key{Section: s.Name, Date: date, Member: member, Chunk: chunk})
					}
				}
			}
		}
	}
	return keys
}
