package coord

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"inferd/pkg/types"
)

func TestStoreCreateAndGet(t *testing.T) {
	s := newStore()
	rec := s.create()
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}
	if rec.State != types.JobQueued {
		t.Fatalf("state=%s", rec.State)
	}
	got, err := s.get(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != rec.ID || got.State != types.JobQueued {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestStoreGetUnknownIsNotFound(t *testing.T) {
	s := newStore()
	_, err := s.get("nope")
	if err == nil || !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := newStore()
	rec := s.create()
	got, _ := s.get(rec.ID)
	got.State = types.JobFailed
	again, _ := s.get(rec.ID)
	if again.State != types.JobQueued {
		t.Fatalf("store mutated via returned copy")
	}
}

func TestStoreTransitionCAS(t *testing.T) {
	s := newStore()
	rec := s.create()
	if err := s.transition(rec.ID, types.JobQueued, types.JobRunning, nil); err != nil {
		t.Fatalf("queued->running: %v", err)
	}
	// Wrong expected state is rejected.
	err := s.transition(rec.ID, types.JobQueued, types.JobFailed, nil)
	if err == nil || !IsIllegalTransition(err) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if err := s.transition(rec.ID, types.JobRunning, types.JobCompleted, nil); err != nil {
		t.Fatalf("running->completed: %v", err)
	}
}

func TestStoreTerminalIsFixedPoint(t *testing.T) {
	s := newStore()
	rec := s.create()
	_ = s.transition(rec.ID, types.JobQueued, types.JobRunning, nil)
	_ = s.transition(rec.ID, types.JobRunning, types.JobFailed, nil)
	for _, to := range []types.JobState{types.JobQueued, types.JobRunning, types.JobCompleted} {
		if err := s.transition(rec.ID, types.JobFailed, to, nil); err == nil {
			t.Fatalf("terminal state left via %s", to)
		}
	}
	got, _ := s.get(rec.ID)
	if got.State != types.JobFailed {
		t.Fatalf("state=%s", got.State)
	}
}

func TestStoreResultVisibleWithState(t *testing.T) {
	s := newStore()
	rec := s.create()
	_ = s.transition(rec.ID, types.JobQueued, types.JobRunning, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			got, err := s.get(rec.ID)
			if err != nil {
				return
			}
			if got.State == types.JobCompleted && got.Result == nil {
				t.Error("observed COMPLETED without result")
				return
			}
		}
	}()
	_ = s.transition(rec.ID, types.JobRunning, types.JobCompleted, func(r *JobRecord) {
		r.Result = json.RawMessage(`{"ok":true}`)
	})
	close(stop)
	wg.Wait()
}

func TestStoreSweepReapsOnlyOldTerminal(t *testing.T) {
	s := newStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	oldDone := s.create()
	_ = s.transition(oldDone.ID, types.JobQueued, types.JobRunning, nil)
	_ = s.transition(oldDone.ID, types.JobRunning, types.JobCompleted, nil)
	oldRunning := s.create()
	_ = s.transition(oldRunning.ID, types.JobQueued, types.JobRunning, nil)

	now = now.Add(time.Hour)
	freshDone := s.create()
	_ = s.transition(freshDone.ID, types.JobQueued, types.JobRunning, nil)
	_ = s.transition(freshDone.ID, types.JobRunning, types.JobFailed, nil)

	if n := s.sweep(10 * time.Minute); n != 1 {
		t.Fatalf("reaped=%d", n)
	}
	if _, err := s.get(oldDone.ID); !IsNotFound(err) {
		t.Fatalf("old terminal record survived sweep: %v", err)
	}
	// A running record is never reaped, however old.
	if _, err := s.get(oldRunning.ID); err != nil {
		t.Fatalf("running record reaped: %v", err)
	}
	if _, err := s.get(freshDone.ID); err != nil {
		t.Fatalf("fresh terminal record reaped: %v", err)
	}
}

func TestStoreCounts(t *testing.T) {
	s := newStore()
	a := s.create()
	b := s.create()
	_ = s.transition(b.ID, types.JobQueued, types.JobRunning, nil)
	c := s.create()
	_ = s.transition(c.ID, types.JobQueued, types.JobRunning, nil)
	_ = s.transition(c.ID, types.JobRunning, types.JobCompleted, nil)
	_ = a // stays queued
	queued, running, completed, failed := s.counts()
	if queued != 1 || running != 1 || completed != 1 || failed != 0 {
		t.Fatalf("counts=%d/%d/%d/%d", queued, running, completed, failed)
	}
}
