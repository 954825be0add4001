package pollclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inferd/pkg/types"
)

// Poll cadence defaults, matching the server-side expectation that a cold
// load can take a couple of minutes.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 40
)

// PollOptions bound one session: one status check per Interval, at most
// MaxAttempts checks.
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// ErrCanceled is returned by Await when the session was disposed via Cancel.
var ErrCanceled = errors.New("poll session canceled")

// UnavailableError is the distinguished timeout rejection: the poll budget
// ran out without a terminal answer. Deliberately ambiguous between "still
// loading" and "network down".
type UnavailableError struct {
	Target   string
	Attempts int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable after %d poll attempts", e.Target, e.Attempts)
}

// IsUnavailable reports whether err is a poll-budget timeout.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// LoadFailedError is the terminal rejection of a readiness poll whose target
// entered the ERROR phase.
type LoadFailedError struct {
	Model   string
	Message string
}

func (e *LoadFailedError) Error() string {
	return "model load failed: " + e.Model + ": " + e.Message
}

// IsLoadFailed reports whether err carries a failed warmup.
func IsLoadFailed(err error) bool {
	var le *LoadFailedError
	return errors.As(err, &le)
}

// Session tracks one target (job or readiness check) to a terminal outcome.
// It settles exactly once: resolve, reject, timeout, or cancel. It never
// blocks between polls other than on the interval timer, and a Cancel while
// a poll is scheduled suppresses it.
type Session struct {
	target      string
	interval    time.Duration
	maxAttempts int
	// probe runs one status check. A nil error with done=false means "not
	// terminal yet"; a terminal application error rejects the session; any
	// other error is a transport failure and is swallowed.
	probe func(context.Context) (done bool, err error)

	mu       sync.Mutex
	attempts int

	cancelCh   chan struct{}
	cancelOnce sync.Once
}

func newSession(target string, opts PollOptions, probe func(context.Context) (bool, error)) *Session {
	opts = opts.withDefaults()
	return &Session{
		target:      target,
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		probe:       probe,
		cancelCh:    make(chan struct{}),
	}
}

// Cancel disposes the session. A blocked Await returns ErrCanceled promptly
// and no further polls are issued. Safe to call more than once.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelCh) })
}

// Attempts reports how many polls were issued so far.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Await drives the session to its single resolution.
func (s *Session) Await(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.cancelCh:
			return ErrCanceled
		default:
		}

		s.mu.Lock()
		if s.attempts >= s.maxAttempts {
			attempts := s.attempts
			s.mu.Unlock()
			return &UnavailableError{Target: s.target, Attempts: attempts}
		}
		s.attempts++
		s.mu.Unlock()

		done, err := s.probe(ctx)
		if err != nil && terminal(err) {
			return err
		}
		if err == nil && done {
			return nil
		}
		// Transport failure or target not terminal yet: same budget, next
		// interval. A flaky network must not terminate the session faster
		// than a genuinely slow load.

		timer := time.NewTimer(s.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.cancelCh:
			timer.Stop()
			return ErrCanceled
		}
	}
}

// terminal separates application-level rejections, surfaced immediately and
// exactly once, from transport noise, which is retried within the budget.
func terminal(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return true
	}
	var je *types.JobError
	if errors.As(err, &je) {
		return true
	}
	var le *LoadFailedError
	return errors.As(err, &le)
}

// JobSession polls one job id until COMPLETED (resolve with the record) or
// FAILED (reject with the carried error, no retries).
type JobSession struct {
	*Session
	out types.JobStatusResponse
}

func (c *Client) NewJobSession(model, jobID string, opts PollOptions) *JobSession {
	js := &JobSession{}
	js.Session = newSession("job "+jobID, opts, func(ctx context.Context) (bool, error) {
		st, err := c.JobStatus(ctx, model, jobID)
		if err != nil {
			return false, err
		}
		switch st.State {
		case types.JobCompleted:
			js.out = st
			return true, nil
		case types.JobFailed:
			if st.Error != nil {
				return false, st.Error
			}
			return false, &types.JobError{Kind: types.KindInternalError, Message: "job failed without error detail"}
		default:
			return false, nil
		}
	})
	return js
}

// Await resolves with the completed job record.
func (js *JobSession) Await(ctx context.Context) (types.JobStatusResponse, error) {
	err := js.Session.Await(ctx)
	return js.out, err
}

// AwaitJob is the one-shot form of a job session.
func (c *Client) AwaitJob(ctx context.Context, model, jobID string, opts PollOptions) (types.JobStatusResponse, error) {
	return c.NewJobSession(model, jobID, opts).Await(ctx)
}

// ReadySession polls a model's readiness until loaded (IDLE or BUSY) or ERROR.
type ReadySession struct {
	*Session
	phase types.Phase
}

func (c *Client) NewReadySession(model string, opts PollOptions) *ReadySession {
	rs := &ReadySession{}
	rs.Session = newSession("model "+model, opts, func(ctx context.Context) (bool, error) {
		h, err := c.Health(ctx, model)
		if err != nil {
			return false, err
		}
		if h.Phase.Loaded() {
			rs.phase = h.Phase
			return true, nil
		}
		if h.Phase == types.PhaseError {
			return false, &LoadFailedError{Model: model, Message: h.LastError}
		}
		return false, nil
	})
	return rs
}

// Await resolves with the loaded phase.
func (rs *ReadySession) Await(ctx context.Context) (types.Phase, error) {
	err := rs.Session.Await(ctx)
	return rs.phase, err
}

// AwaitReady is the one-shot form of a readiness session.
func (c *Client) AwaitReady(ctx context.Context, model string, opts PollOptions) (types.Phase, error) {
	return c.NewReadySession(model, opts).Await(ctx)
}
