package types

import "encoding/json"

// SubmitRequest wraps the opaque inference payload handed to an engine.
// The coordinator never inspects Input; it is stored and replayed verbatim.
type SubmitRequest struct {
	// Engine-specific input payload, passed through untouched.
	Input json.RawMessage `json:"input"`
}

// SubmitResponse is returned by POST /v1/models/{model}/jobs.
type SubmitResponse struct {
	// Identifier to poll via the job status endpoint.
	// example: 3e1f2f6a-9a57-4c11-8f0e-2d9f6a2b7c41
	JobID string `json:"job_id" example:"3e1f2f6a-9a57-4c11-8f0e-2d9f6a2b7c41"`
}

// JobStatusResponse is returned by GET /v1/models/{model}/jobs/{id}.
// Result is present only when State is COMPLETED; Error only when FAILED.
type JobStatusResponse struct {
	// example: 3e1f2f6a-9a57-4c11-8f0e-2d9f6a2b7c41
	JobID string `json:"job_id" example:"3e1f2f6a-9a57-4c11-8f0e-2d9f6a2b7c41"`
	// example: COMPLETED
	State JobState `json:"state" example:"COMPLETED"`
	// Engine result, byte-identical to what the engine produced.
	Result json.RawMessage `json:"result,omitempty"`
	Error  *JobError       `json:"error,omitempty"`
	// Job creation time in unix seconds.
	// example: 1700000000
	CreatedAt int64 `json:"created_at_unix" example:"1700000000"`
	// Last transition time in unix seconds.
	// example: 1700000004
	UpdatedAt int64 `json:"updated_at_unix" example:"1700000004"`
}

// WarmupResponse is returned by POST /v1/models/{model}/warmup.
type WarmupResponse struct {
	// example: qwen-vl
	Model string `json:"model" example:"qwen-vl"`
	// Phase observed immediately after the (idempotent) trigger.
	// example: LOADING
	Phase Phase `json:"phase" example:"LOADING"`
}

// HealthResponse is returned by GET /v1/models/{model}/healthz.
type HealthResponse struct {
	// example: qwen-vl
	Model string `json:"model" example:"qwen-vl"`
	// example: IDLE
	Phase Phase `json:"phase" example:"IDLE"`
	// Populated when Phase is ERROR.
	LastError string `json:"last_error,omitempty"`
}

// ModelStatus summarizes one model runtime for GET /status.
type ModelStatus struct {
	// example: qwen-vl
	Model string `json:"model" example:"qwen-vl"`
	// example: IDLE
	Phase Phase `json:"phase" example:"IDLE"`
	// Permits the engine gate may hand out concurrently.
	// example: 1
	Capacity int `json:"capacity" example:"1"`
	// Permits currently held.
	// example: 0
	Inflight int `json:"inflight" example:"0"`
	// Job counts by state, within the reaping window.
	Queued    int `json:"jobs_queued"`
	Running   int `json:"jobs_running"`
	Completed int `json:"jobs_completed"`
	Failed    int `json:"jobs_failed"`
	// Last load error observed (if any).
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	// Uptime of the coordinator in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is the consistent JSON error payload for non-2xx responses.
type ErrorResponse struct {
	// Error message.
	// example: model not ready: qwen-vl (phase UNLOADED), warm up first
	Error string `json:"error" example:"model not ready: qwen-vl (phase UNLOADED), warm up first"`
	// Machine-readable failure kind.
	// example: NotReady
	Kind ErrorKind `json:"kind" example:"NotReady"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}
