package service

import (
	"errors"

	"github.com/yantech/notify-dispatcher/internal/domain"
	"github.com/yantech/notify-dispatcher/internal/provider"
)

// Stage names the dispatcher step in which a job failed.
type Stage string

const (
	StageParse     Stage = "parse"
	StageResolve   Stage = "resolve"
	StageRoute     Stage = "route"
	StageRateLimit Stage = "rate_limit"
	StageProvider  Stage = "provider"
)

// JobError is returned by Dispatcher.Process for every job that must stay in
// the queue. The message is what gets written to the delivery log.
type JobError struct {
	Stage Stage
	Err   error
}

func (e *JobError) Error() string {
	if e == nil || e.Err == nil {
		return "<nil>"
	}
	return e.Err.Error()
}

func (e *JobError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newJobError(stage Stage, err error) *JobError {
	return &JobError{Stage: stage, Err: err}
}

// StageOf returns the failure stage of err, or an empty stage when err did not
// come from the dispatcher.
func StageOf(err error) Stage {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Stage
	}
	return ""
}

// failureReason maps a job failure to a low-cardinality metrics label.
func failureReason(err *JobError) string {
	switch err.Stage {
	case StageParse:
		return "malformed"
	case StageResolve:
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return "not_found"
		case errors.Is(err, domain.ErrApplicationSuspended):
			return "suspended"
		default:
			return "lookup_error"
		}
	case StageRoute:
		if errors.Is(err, domain.ErrUnsupportedOutputType) {
			return "unsupported_output_type"
		}
		return "missing_recipient"
	case StageRateLimit:
		return "rate_limited"
	case StageProvider:
		return provider.Reason(err.Err)
	default:
		return "unknown"
	}
}
