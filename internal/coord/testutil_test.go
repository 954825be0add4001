package coord

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// fakeEngine is a scriptable engine for lifecycle tests.
type fakeEngine struct {
	loadErr   error
	loadDelay time.Duration
	loadCalls atomic.Int32
	inferFn   func(ctx context.Context, req json.RawMessage) (json.RawMessage, error)
}

func (f *fakeEngine) Load(ctx context.Context) error {
	f.loadCalls.Add(1)
	if f.loadDelay > 0 {
		select {
		case <-time.After(f.loadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.loadErr
}

func (f *fakeEngine) Infer(ctx context.Context, req json.RawMessage) (json.RawMessage, error) {
	if f.inferFn != nil {
		return f.inferFn(ctx, req)
	}
	return req, nil
}

func newTestCoordinator(t *testing.T, model string, eng *fakeEngine, mc ModelConfig) *Coordinator {
	t.Helper()
	mc.ID = model
	mc.Engine = eng
	c := New(Options{
		Models: []ModelConfig{mc},
		Logger: zerolog.Nop(),
	})
	t.Cleanup(c.Close)
	return c
}

// warmAndWait triggers warmup and blocks until the model is loaded.
func warmAndWait(t *testing.T, c *Coordinator, model string) {
	t.Helper()
	if _, err := c.Warmup(model); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	waitPhase(t, c, model, types.PhaseIdle)
}

func waitPhase(t *testing.T, c *Coordinator, model string, want types.Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h, err := c.Health(model)
		if err != nil {
			t.Fatalf("health: %v", err)
		}
		if h.Phase == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	h, _ := c.Health(model)
	t.Fatalf("phase never reached %s (last %s)", want, h.Phase)
}

// waitTerminal polls a job until it reaches a terminal state.
func waitTerminal(t *testing.T, c *Coordinator, model, jobID string) types.JobStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := c.JobStatus(model, jobID)
		if err != nil {
			t.Fatalf("job status: %v", err)
		}
		if st.State.Terminal() {
			return st
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", jobID)
	return types.JobStatusResponse{}
}
