package coord

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// Defaults applied when corresponding runner fields are unset.
const (
	defaultAdmitAttempts = 5
	defaultAdmitBackoff  = 200 * time.Millisecond
)

// runner accepts work for one model, allocates the job record, and executes
// it asynchronously against the gate. It is the only writer of the job store.
type runner struct {
	model string
	eng   engine.Engine
	store *store
	gate  *gate
	ready *readiness
	log   zerolog.Logger

	admitAttempts int
	admitBackoff  time.Duration

	baseCtx context.Context
	wg      sync.WaitGroup
}

// submit enforces the readiness precondition, creates a QUEUED record, and
// returns its id without waiting for execution. Submitting to a cold engine
// is a caller error, not something to retry silently, so no record is created
// in that case.
func (r *runner) submit(req json.RawMessage) (string, error) {
	if ph := r.ready.Phase(); !ph.Loaded() {
		return "", notReadyError{model: r.model, phase: ph}
	}
	rec := r.store.create()
	r.wg.Add(1)
	go r.run(rec.ID, req)
	return rec.ID, nil
}

// run drives one job to a terminal state. Every exit path performs exactly
// one store transition per state change and releases the permit if one was
// acquired.
func (r *runner) run(id string, req json.RawMessage) {
	defer r.wg.Done()

	p := r.admit()
	if p == nil {
		admissionRejectsTotal.WithLabelValues(r.model).Inc()
		r.fail(id, types.JobQueued, types.KindOverloaded, "admission retries exhausted for model "+r.model)
		return
	}
	defer p.release()

	r.ready.beginWork()
	defer r.ready.endWork()

	if err := r.store.transition(id, types.JobQueued, types.JobRunning, nil); err != nil {
		// Record vanished or was mutated out from under us; nothing to run.
		r.log.Error().Str("model", r.model).Str("job_id", id).Err(err).Msg("job start rejected")
		return
	}
	gateInflight.WithLabelValues(r.model).Inc()
	defer gateInflight.WithLabelValues(r.model).Dec()

	start := time.Now()
	result, err := r.invoke(req)
	if err != nil {
		r.fail(id, types.JobRunning, types.KindInternalError, err.Error())
		r.log.Error().Str("model", r.model).Str("job_id", id).Dur("dur", time.Since(start)).Err(err).Msg("job failed")
		return
	}
	uerr := r.store.transition(id, types.JobRunning, types.JobCompleted, func(rec *JobRecord) {
		rec.Result = result
	})
	if uerr != nil {
		r.log.Error().Str("model", r.model).Str("job_id", id).Err(uerr).Msg("job completion rejected")
		return
	}
	jobsTotal.WithLabelValues(r.model, "completed").Inc()
	r.log.Info().Str("model", r.model).Str("job_id", id).Dur("dur", time.Since(start)).Msg("job completed")
}

// admit tries the gate with a short fixed backoff. This absorbs brief races
// between back-to-back submissions so every caller does not need its own
// backoff loop. Exhausting the budget means the engine is genuinely saturated.
func (r *runner) admit() *permit {
	attempts := r.admitAttempts
	if attempts <= 0 {
		attempts = defaultAdmitAttempts
	}
	backoff := r.admitBackoff
	if backoff <= 0 {
		backoff = defaultAdmitBackoff
	}
	for i := 0; i < attempts; i++ {
		if p, ok := r.gate.tryAcquire(); ok {
			return p
		}
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-r.baseCtx.Done():
			timer.Stop()
			return nil
		}
		timer.Stop()
	}
	return nil
}

// invoke calls the engine, translating a panic into an ordinary error so the
// job still reaches FAILED and the deferred permit release still runs.
func (r *runner) invoke(req json.RawMessage) (result json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("engine panic: %v", rec)
		}
	}()
	return r.eng.Infer(r.baseCtx, req)
}

func (r *runner) fail(id string, from types.JobState, kind types.ErrorKind, msg string) {
	err := r.store.transition(id, from, types.JobFailed, func(rec *JobRecord) {
		rec.Err = &types.JobError{Kind: kind, Message: msg}
	})
	if err != nil {
		r.log.Error().Str("model", r.model).Str("job_id", id).Err(err).Msg("job failure transition rejected")
		return
	}
	jobsTotal.WithLabelValues(r.model, "failed").Inc()
}
