package logging

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	CauseField      = "cause"
	StacktraceField = "stacktrace"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithError adds err to the entry, together with its root cause if err wraps another error,
// and the outermost stack trace recorded by pkg/errors if there is one.
func WithError(entry *log.Entry, err error) *log.Entry {
	if err == nil {
		return entry
	}
	entry = entry.WithError(err)
	if cause := errors.Cause(err); cause != err {
		entry = entry.WithField(CauseField, cause.Error())
	}
	if stack := stackOf(err); stack != nil {
		entry = entry.WithField(StacktraceField, stack)
	}
	return entry
}

// stackOf walks err's chain outside-in and returns the first stack trace it finds.
func stackOf(err error) errors.StackTrace {
	for err != nil {
		if tracer, ok := err.(stackTracer); ok {
			return tracer.StackTrace()
		}
		err = errors.Unwrap(err)
	}
	return nil
}
