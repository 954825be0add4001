package coord

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// readiness owns the load state machine for one model engine:
//
//	UNLOADED -warmup-> LOADING -> IDLE | ERROR
//	IDLE <-> BUSY while the gate holds admitted work
//	any -reset-> UNLOADED
//
// Warmup is idempotent and single-flight: concurrent triggers while cold start
// exactly one load, and every caller observes the same resulting phase.
type readiness struct {
	model  string
	loadFn func(context.Context) error
	log    zerolog.Logger

	mu       sync.Mutex
	phase    types.Phase
	lastErr  string
	inflight int
}

func newReadiness(model string, loadFn func(context.Context) error, log zerolog.Logger) *readiness {
	return &readiness{
		model:  model,
		loadFn: loadFn,
		log:    log,
		phase:  types.PhaseUnloaded,
	}
}

func (r *readiness) Phase() types.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *readiness) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Warmup triggers a model load if one is needed and returns the phase
// observed right after the trigger. Calling it while already LOADING, IDLE or
// BUSY is a no-op. A failed load (phase ERROR) may be retried by warming up
// again. The load runs on its own goroutine against ctx, which should be
// process-scoped: the load outlives whichever request triggered it.
func (r *readiness) Warmup(ctx context.Context) types.Phase {
	r.mu.Lock()
	switch r.phase {
	case types.PhaseLoading, types.PhaseIdle, types.PhaseBusy:
		ph := r.phase
		r.mu.Unlock()
		return ph
	}
	r.phase = types.PhaseLoading
	r.lastErr = ""
	r.mu.Unlock()

	r.log.Info().Str("model", r.model).Msg("warmup started")
	go r.load(ctx)
	return types.PhaseLoading
}

func (r *readiness) load(ctx context.Context) {
	err := r.loadFn(ctx)
	r.mu.Lock()
	if r.phase != types.PhaseLoading {
		// Reset raced the load; whatever phase reset chose wins.
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.phase = types.PhaseError
		r.lastErr = err.Error()
		r.mu.Unlock()
		warmupsTotal.WithLabelValues(r.model, "error").Inc()
		r.log.Error().Str("model", r.model).Err(err).Msg("warmup failed")
		return
	}
	r.phase = types.PhaseIdle
	r.mu.Unlock()
	warmupsTotal.WithLabelValues(r.model, "ok").Inc()
	r.log.Info().Str("model", r.model).Msg("warmup complete")
}

// Reset forces the machine back to UNLOADED, clearing any error. An in-flight
// load that finishes after a reset is discarded.
func (r *readiness) Reset() {
	r.mu.Lock()
	r.phase = types.PhaseUnloaded
	r.lastErr = ""
	r.inflight = 0
	r.mu.Unlock()
}

// beginWork flips IDLE to BUSY for the duration of an admitted engine call.
// With capacity above one the phase stays BUSY until the last call returns.
func (r *readiness) beginWork() {
	r.mu.Lock()
	r.inflight++
	if r.phase == types.PhaseIdle {
		r.phase = types.PhaseBusy
	}
	r.mu.Unlock()
}

func (r *readiness) endWork() {
	r.mu.Lock()
	if r.inflight > 0 {
		r.inflight--
	}
	if r.inflight == 0 && r.phase == types.PhaseBusy {
		r.phase = types.PhaseIdle
	}
	r.mu.Unlock()
}
