package coord

import "sync"

// gate is the bounded admission control around the engine call. Capacity is
// the number of inferences the GPU process can run in parallel without
// exhausting memory (typically 1). The gate never queues: acquisition either
// succeeds immediately or reports busy, and the queuing policy stays with the
// caller.
type gate struct {
	permits chan struct{}
}

func newGate(capacity int) *gate {
	if capacity <= 0 {
		capacity = 1
	}
	return &gate{permits: make(chan struct{}, capacity)}
}

// permit is a capacity token held for the duration of one engine call.
// release is idempotent so deferred and explicit releases cannot double-free
// a slot.
type permit struct {
	g    *gate
	once sync.Once
}

// tryAcquire returns a permit immediately if capacity is available.
func (g *gate) tryAcquire() (*permit, bool) {
	select {
	case g.permits <- struct{}{}:
		return &permit{g: g}, true
	default:
		return nil, false
	}
}

func (p *permit) release() {
	p.once.Do(func() { <-p.g.permits })
}

func (g *gate) inflight() int { return len(g.permits) }

func (g *gate) capacity() int { return cap(g.permits) }
