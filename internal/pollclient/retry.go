package pollclient

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"inferd/pkg/types"
)

// Retry defaults for engines with unreliable cold starts.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 5 * time.Second
)

// RetryPolicy bounds the recovery wrapper: at most Attempts submissions,
// a fixed Delay between them, and the given poll cadence per submission.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Poll     PollOptions
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultRetryDelay
	}
	return p
}

// RunWithWarmup submits one request and tracks it to completion, recovering
// from cold-start failures: on a retryable rejection it triggers warmup (at
// most once, the trigger is idempotent server-side anyway), waits for
// readiness, then resubmits the identical request. Exhausting the budget
// surfaces the first failure rather than masking it with a later one.
// It wraps submit and poll only; all job state transitions stay server-side.
func (c *Client) RunWithWarmup(ctx context.Context, model string, payload json.RawMessage, policy RetryPolicy) (types.JobStatusResponse, error) {
	policy = policy.withDefaults()
	var firstErr error
	warmed := false
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(policy.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return types.JobStatusResponse{}, ctx.Err()
			}
		}
		st, err := c.submitAndAwait(ctx, model, payload, policy.Poll)
		if err == nil {
			return st, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil || !retryable(err) {
			return types.JobStatusResponse{}, err
		}
		if !warmed {
			if _, werr := c.Warmup(ctx, model); werr == nil {
				warmed = true
				if _, rerr := c.AwaitReady(ctx, model, policy.Poll); rerr != nil && terminal(rerr) {
					return types.JobStatusResponse{}, rerr
				}
			}
		}
	}
	return types.JobStatusResponse{}, firstErr
}

func (c *Client) submitAndAwait(ctx context.Context, model string, payload json.RawMessage, opts PollOptions) (types.JobStatusResponse, error) {
	jobID, err := c.Submit(ctx, model, payload)
	if err != nil {
		return types.JobStatusResponse{}, err
	}
	return c.AwaitJob(ctx, model, jobID, opts)
}

// retryable reports whether a failure is plausibly cured by warmup plus a
// resubmission. Hard application errors (NotFound, UnknownModel) are not.
func retryable(err error) bool {
	if IsUnavailable(err) || IsLoadFailed(err) {
		return true
	}
	var je *types.JobError
	if errors.As(err, &je) {
		return je.Kind != types.KindNotFound && je.Kind != types.KindUnknownModel
	}
	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case types.KindNotReady, types.KindOverloaded, types.KindInternalError, types.KindLoadFailed:
			return true
		}
		return false
	}
	// Transport failure on submit itself.
	return true
}
