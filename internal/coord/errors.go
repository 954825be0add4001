package coord

import (
	"inferd/pkg/types"
)

// notReadyError signals a submit against a model that is not loaded.
// The caller must trigger warmup first; this is not a transient condition.
type notReadyError struct {
	model string
	phase types.Phase
}

func (e notReadyError) Error() string {
	return "model not ready: " + e.model + " (phase " + string(e.phase) + "), warm up first"
}

// IsNotReady reports whether err indicates the readiness precondition failed.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// overloadedError signals that gate admission was exhausted for a job.
type overloadedError struct{ model string }

func (e overloadedError) Error() string { return "engine overloaded: " + e.model }

// IsOverloaded reports whether err indicates backpressure (429 mapping).
func IsOverloaded(err error) bool {
	_, ok := err.(overloadedError)
	return ok
}

// notFoundError signals an unknown or reaped job id.
type notFoundError struct{ id string }

func (e notFoundError) Error() string { return "job not found: " + e.id }

// IsNotFound reports whether err indicates a missing job id.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// unknownModelError signals a model id the coordinator does not host.
type unknownModelError struct{ id string }

func (e unknownModelError) Error() string { return "unknown model: " + e.id }

// IsUnknownModel reports whether err names a model this process does not host.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// illegalTransitionError is returned by the store when a compare-and-set
// update observes a different current state than expected.
type illegalTransitionError struct {
	id       string
	from, to types.JobState
	current  types.JobState
}

func (e illegalTransitionError) Error() string {
	return "illegal transition for job " + e.id + ": " + string(e.from) + "->" + string(e.to) +
		" (current " + string(e.current) + ")"
}

// IsIllegalTransition reports whether err indicates a rejected state update.
func IsIllegalTransition(err error) bool {
	_, ok := err.(illegalTransitionError)
	return ok
}

// ErrNotReady constructs the submit-precondition error for external callers
// (and tests) that mock the coordinator.
func ErrNotReady(model string, phase types.Phase) error {
	return notReadyError{model: model, phase: phase}
}

// ErrOverloaded constructs an admission-exhausted error.
func ErrOverloaded(model string) error { return overloadedError{model: model} }

// ErrNotFound constructs an unknown-job error.
func ErrNotFound(id string) error { return notFoundError{id: id} }

// ErrUnknownModel constructs an unknown-model error.
func ErrUnknownModel(id string) error { return unknownModelError{id: id} }

// Kind maps a coordinator error to its wire-level kind.
func Kind(err error) types.ErrorKind {
	switch {
	case IsNotReady(err):
		return types.KindNotReady
	case IsOverloaded(err):
		return types.KindOverloaded
	case IsNotFound(err):
		return types.KindNotFound
	case IsUnknownModel(err):
		return types.KindUnknownModel
	default:
		return types.KindInternalError
	}
}
