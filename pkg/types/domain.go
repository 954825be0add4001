package types

// JobState is the lifecycle state of an asynchronous inference job.
// A job moves QUEUED -> RUNNING -> {COMPLETED | FAILED} exactly once.
type JobState string

const (
	JobQueued    JobState = "QUEUED"
	JobRunning   JobState = "RUNNING"
	JobCompleted JobState = "COMPLETED"
	JobFailed    JobState = "FAILED"
)

// Terminal reports whether the state is a fixed point.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Phase is the readiness state of one model engine.
type Phase string

const (
	PhaseUnloaded Phase = "UNLOADED"
	PhaseLoading  Phase = "LOADING"
	PhaseIdle     Phase = "IDLE"
	PhaseBusy     Phase = "BUSY"
	PhaseError    Phase = "ERROR"
)

// Loaded reports whether the engine holds a usable model. BUSY still counts:
// the model is in memory, the gate just has work admitted.
func (p Phase) Loaded() bool {
	return p == PhaseIdle || p == PhaseBusy
}

// ErrorKind is the closed taxonomy of machine-readable failure kinds shared by
// the server, the HTTP binding, and the poll client.
type ErrorKind string

const (
	// Produced by the coordinator and carried on the wire.
	KindNotReady      ErrorKind = "NotReady"
	KindOverloaded    ErrorKind = "Overloaded"
	KindInternalError ErrorKind = "InternalError"
	KindNotFound      ErrorKind = "NotFound"
	KindUnknownModel  ErrorKind = "UnknownModel"

	// Produced client-side by the poll session: Unavailable when the poll
	// budget runs out without a terminal answer, LoadFailed when a tracked
	// warmup ends in phase ERROR. The server reports load failures through
	// the healthz phase, not through these kinds.
	KindUnavailable ErrorKind = "Unavailable"
	KindLoadFailed  ErrorKind = "LoadFailed"
)

// JobError is the structured error carried by a FAILED job.
type JobError struct {
	// Machine-readable failure kind.
	// example: InternalError
	Kind ErrorKind `json:"kind" example:"InternalError"`
	// Human-readable message.
	// example: engine panic: index out of range
	Message string `json:"message" example:"engine panic: index out of range"`
}

func (e *JobError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
