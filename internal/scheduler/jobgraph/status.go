package jobgraph

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/packager/internal/common/armadaerrors"
)

// Status is the lifecycle state of a job.
// Transitions are driven by the execution engine; the packager only reads them.
type Status int

const (
	Waiting Status = iota
	Ready
	Submitted
	Queued
	StatusRunning
	Completed
	Failed
	Suspended
)

var statusNames = [...]string{
	Waiting:       "WAITING",
	Ready:         "READY",
	Submitted:     "SUBMITTED",
	Queued:        "QUEUED",
	StatusRunning: "RUNNING",
	Completed:     "COMPLETED",
	Failed:        "FAILED",
	Suspended:     "SUSPENDED",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// ParseStatus is the inverse of Status.String. It's case-insensitive.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if strings.EqualFold(name, s) {
			return Status(i), nil
		}
	}
	return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
		Name:    "status",
		Value:   s,
		Message: "unknown job status",
	})
}

// Wrappable returns true for the states a job may be in when it's added to a package behind its anchor.
func (s Status) Wrappable() bool {
	return s == Ready || s == Waiting
}

// InQueue returns true if the job is held by the batch system, i.e., it counts against platform limits.
func (s Status) InQueue() bool {
	return s == Submitted || s == Queued || s == StatusRunning
}
