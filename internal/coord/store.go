package coord

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"inferd/pkg/types"
)

// JobRecord is one job and its asynchronous outcome. Records are created and
// mutated only by the runner; everything else sees copies.
type JobRecord struct {
	ID        string
	State     types.JobState
	CreatedAt time.Time
	UpdatedAt time.Time
	// Result is set exactly once, on the transition to COMPLETED, and is
	// returned byte-identical on every subsequent read.
	Result json.RawMessage
	Err    *types.JobError
}

// store is the in-memory job table for one model runtime.
type store struct {
	mu   sync.RWMutex
	jobs map[string]*JobRecord
	now  func() time.Time // injectable for sweep tests
}

func newStore() *store {
	return &store{jobs: make(map[string]*JobRecord), now: time.Now}
}

// create allocates a QUEUED record and returns a copy of it.
func (s *store) create() JobRecord {
	now := s.now()
	rec := &JobRecord{
		ID:        uuid.NewString(),
		State:     types.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[rec.ID] = rec
	s.mu.Unlock()
	return *rec
}

// get returns a copy of the record, or a NotFound error for unknown/reaped
// ids. Returning a copy keeps result+state reads atomic: a poller can never
// observe a half-written record.
func (s *store) get(id string) (JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return JobRecord{}, notFoundError{id: id}
	}
	return *rec, nil
}

// transition applies a compare-and-set state change. The mutation runs under
// the lock, together with the state write, so readers see either the old
// record or the fully updated one. Terminal states are fixed points: any
// attempt to leave one fails the CAS.
func (s *store) transition(id string, from, to types.JobState, mutate func(*JobRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return notFoundError{id: id}
	}
	if rec.State != from || rec.State.Terminal() {
		return illegalTransitionError{id: id, from: from, to: to, current: rec.State}
	}
	if mutate != nil {
		mutate(rec)
	}
	rec.State = to
	rec.UpdatedAt = s.now()
	return nil
}

// sweep removes terminal records whose last transition is older than ttl and
// reports how many were reaped. Non-terminal records are never reaped, so an
// admitted inference always reaches an observable outcome.
func (s *store) sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, rec := range s.jobs {
		if rec.State.Terminal() && rec.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// counts returns job totals by state for the status report.
func (s *store) counts() (queued, running, completed, failed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.jobs {
		switch rec.State {
		case types.JobQueued:
			queued++
		case types.JobRunning:
			running++
		case types.JobCompleted:
			completed++
		case types.JobFailed:
			failed++
		}
	}
	return
}
