package coord

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

func newTestReadiness(loadFn func(context.Context) error) *readiness {
	return newReadiness("m1", loadFn, zerolog.Nop())
}

func waitReadinessPhase(t *testing.T, r *readiness, want types.Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("phase never reached %s (last %s)", want, r.Phase())
}

func TestReadinessWarmupHappyPath(t *testing.T) {
	r := newTestReadiness(func(context.Context) error { return nil })
	if r.Phase() != types.PhaseUnloaded {
		t.Fatalf("initial phase %s", r.Phase())
	}
	if ph := r.Warmup(context.Background()); ph != types.PhaseLoading {
		t.Fatalf("warmup returned %s", ph)
	}
	waitReadinessPhase(t, r, types.PhaseIdle)
	if r.LastError() != "" {
		t.Fatalf("lastErr=%q", r.LastError())
	}
}

func TestReadinessWarmupIsIdempotentOnceLoaded(t *testing.T) {
	var calls atomic.Int32
	r := newTestReadiness(func(context.Context) error {
		calls.Add(1)
		return nil
	})
	r.Warmup(context.Background())
	waitReadinessPhase(t, r, types.PhaseIdle)
	if ph := r.Warmup(context.Background()); ph != types.PhaseIdle {
		t.Fatalf("second warmup returned %s", ph)
	}
	if calls.Load() != 1 {
		t.Fatalf("load called %d times", calls.Load())
	}
}

func TestReadinessConcurrentWarmupsLoadOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	r := newTestReadiness(func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ph := r.Warmup(context.Background())
			if ph != types.PhaseLoading {
				t.Errorf("concurrent warmup observed %s", ph)
			}
		}()
	}
	wg.Wait()
	close(release)
	waitReadinessPhase(t, r, types.PhaseIdle)

	if calls.Load() != 1 {
		t.Fatalf("load called %d times, want 1", calls.Load())
	}
}

func TestReadinessLoadFailureAndRetry(t *testing.T) {
	var calls atomic.Int32
	r := newTestReadiness(func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("weights missing")
		}
		return nil
	})

	r.Warmup(context.Background())
	waitReadinessPhase(t, r, types.PhaseError)
	if r.LastError() != "weights missing" {
		t.Fatalf("lastErr=%q", r.LastError())
	}

	// ERROR is retryable: warming up again starts a fresh load and clears
	// the recorded error.
	if ph := r.Warmup(context.Background()); ph != types.PhaseLoading {
		t.Fatalf("retry warmup returned %s", ph)
	}
	waitReadinessPhase(t, r, types.PhaseIdle)
	if r.LastError() != "" {
		t.Fatalf("lastErr=%q after successful retry", r.LastError())
	}
	if calls.Load() != 2 {
		t.Fatalf("load called %d times", calls.Load())
	}
}

func TestReadinessBusyTracksInflightWork(t *testing.T) {
	r := newTestReadiness(func(context.Context) error { return nil })
	r.Warmup(context.Background())
	waitReadinessPhase(t, r, types.PhaseIdle)

	r.beginWork()
	if r.Phase() != types.PhaseBusy {
		t.Fatalf("phase %s after beginWork", r.Phase())
	}
	r.beginWork()
	r.endWork()
	if r.Phase() != types.PhaseBusy {
		t.Fatalf("phase %s with one call still in flight", r.Phase())
	}
	r.endWork()
	if r.Phase() != types.PhaseIdle {
		t.Fatalf("phase %s after last endWork", r.Phase())
	}
}

func TestReadinessResetDiscardsInflightLoad(t *testing.T) {
	release := make(chan struct{})
	r := newTestReadiness(func(context.Context) error {
		<-release
		return nil
	})
	r.Warmup(context.Background())
	if r.Phase() != types.PhaseLoading {
		t.Fatalf("phase %s", r.Phase())
	}
	r.Reset()
	close(release)

	// The finished load must not resurrect the model.
	time.Sleep(50 * time.Millisecond)
	if r.Phase() != types.PhaseUnloaded {
		t.Fatalf("phase %s after reset raced load", r.Phase())
	}
}

func TestReadinessResetClearsError(t *testing.T) {
	r := newTestReadiness(func(context.Context) error { return errors.New("boom") })
	r.Warmup(context.Background())
	waitReadinessPhase(t, r, types.PhaseError)
	r.Reset()
	if r.Phase() != types.PhaseUnloaded || r.LastError() != "" {
		t.Fatalf("phase=%s lastErr=%q after reset", r.Phase(), r.LastError())
	}
}
