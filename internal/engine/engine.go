package engine

import (
	"context"
	"encoding/json"
	"fmt"
)

// Engine abstracts one model runtime. Load brings the model into GPU memory;
// Infer runs a single request against the loaded model. Both payloads are
// opaque to the coordinator.
type Engine interface {
	// Load prepares the model for inference. It may take minutes on a cold
	// GPU and must be safe to call again after a failure.
	Load(ctx context.Context) error
	// Infer runs one request. Implementations must return when the context
	// is canceled.
	Infer(ctx context.Context, req json.RawMessage) (json.RawMessage, error)
}

// Spec selects and configures an engine implementation from config.
type Spec struct {
	Kind string // "echo" or "llama"

	// echo
	LoadDelay  string
	InferDelay string

	// llama
	ModelPath string
	CtxSize   int
	Threads   int
}

// LlamaSupported reports whether this binary carries the real llama engine
// (built with -tags=llama) or only the stub.
func LlamaSupported() bool { return llamaBuilt }

// New builds an Engine from a Spec.
func New(spec Spec) (Engine, error) {
	switch spec.Kind {
	case "", "echo":
		return NewEcho(spec.LoadDelay, spec.InferDelay)
	case "llama":
		return NewLlama(spec.ModelPath, spec.CtxSize, spec.Threads)
	default:
		return nil, fmt.Errorf("unknown engine kind: %q", spec.Kind)
	}
}
