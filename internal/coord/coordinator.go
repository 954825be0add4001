package coord

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/engine"
	"inferd/pkg/types"
)

// Defaults applied when corresponding Options fields are unset.
const (
	defaultJobTTL        = 10 * time.Minute
	defaultSweepInterval = time.Minute
)

// ModelConfig binds one model id to an engine and its admission tunables.
type ModelConfig struct {
	ID            string
	Engine        engine.Engine
	Capacity      int
	AdmitAttempts int
	AdmitBackoff  time.Duration
}

// Options configures a Coordinator.
type Options struct {
	Models        []ModelConfig
	JobTTL        time.Duration
	SweepInterval time.Duration
	Logger        zerolog.Logger
}

// modelRuntime bundles the per-model pieces: job table, gate, readiness, runner.
type modelRuntime struct {
	id     string
	store  *store
	gate   *gate
	ready  *readiness
	runner *runner
}

// Coordinator is the process-scoped facade over all model runtimes. The model
// set is fixed at construction; per-model state lives behind each runtime's
// own synchronization, so the map itself needs none.
type Coordinator struct {
	models    map[string]*modelRuntime
	jobTTL    time.Duration
	startTime time.Time
	log       zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds the runtimes and starts the sweep janitor.
func New(opts Options) *Coordinator {
	if opts.JobTTL <= 0 {
		opts.JobTTL = defaultJobTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		models:    make(map[string]*modelRuntime, len(opts.Models)),
		jobTTL:    opts.JobTTL,
		startTime: time.Now(),
		log:       opts.Logger,
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, mc := range opts.Models {
		st := newStore()
		g := newGate(mc.Capacity)
		rd := newReadiness(mc.ID, mc.Engine.Load, opts.Logger)
		c.models[mc.ID] = &modelRuntime{
			id:    mc.ID,
			store: st,
			gate:  g,
			ready: rd,
			runner: &runner{
				model:         mc.ID,
				eng:           mc.Engine,
				store:         st,
				gate:          g,
				ready:         rd,
				log:           opts.Logger,
				admitAttempts: mc.AdmitAttempts,
				admitBackoff:  mc.AdmitBackoff,
				baseCtx:       ctx,
			},
		}
	}
	go c.janitor(opts.SweepInterval)
	return c
}

// Close stops the janitor and waits for in-flight jobs to reach a terminal
// state so no record is left RUNNING forever.
func (c *Coordinator) Close() {
	c.cancel()
	for _, rt := range c.models {
		rt.runner.wg.Wait()
	}
}

func (c *Coordinator) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, rt := range c.models {
				if n := rt.store.sweep(c.jobTTL); n > 0 {
					c.log.Debug().Str("model", rt.id).Int("reaped", n).Msg("swept terminal jobs")
				}
			}
		case <-c.baseCtx.Done():
			return
		}
	}
}

func (c *Coordinator) runtime(model string) (*modelRuntime, error) {
	rt, ok := c.models[model]
	if !ok {
		return nil, unknownModelError{id: model}
	}
	return rt, nil
}

// Warmup triggers a load for the model if needed and reports the phase
// observed right after the trigger.
func (c *Coordinator) Warmup(model string) (types.Phase, error) {
	rt, err := c.runtime(model)
	if err != nil {
		return "", err
	}
	return rt.ready.Warmup(c.baseCtx), nil
}

// Submit accepts one inference request and returns the job id to poll.
func (c *Coordinator) Submit(model string, req json.RawMessage) (string, error) {
	rt, err := c.runtime(model)
	if err != nil {
		return "", err
	}
	return rt.runner.submit(req)
}

// JobStatus reads one job record.
func (c *Coordinator) JobStatus(model, jobID string) (types.JobStatusResponse, error) {
	rt, err := c.runtime(model)
	if err != nil {
		return types.JobStatusResponse{}, err
	}
	rec, err := rt.store.get(jobID)
	if err != nil {
		return types.JobStatusResponse{}, err
	}
	return types.JobStatusResponse{
		JobID:     rec.ID,
		State:     rec.State,
		Result:    rec.Result,
		Error:     rec.Err,
		CreatedAt: rec.CreatedAt.Unix(),
		UpdatedAt: rec.UpdatedAt.Unix(),
	}, nil
}

// Health reads the readiness state of one model.
func (c *Coordinator) Health(model string) (types.HealthResponse, error) {
	rt, err := c.runtime(model)
	if err != nil {
		return types.HealthResponse{}, err
	}
	return types.HealthResponse{
		Model:     model,
		Phase:     rt.ready.Phase(),
		LastError: rt.ready.LastError(),
	}, nil
}

// Reset forces a model back to UNLOADED so a stuck or failed engine can be
// warmed up from scratch.
func (c *Coordinator) Reset(model string) error {
	rt, err := c.runtime(model)
	if err != nil {
		return err
	}
	rt.ready.Reset()
	return nil
}
