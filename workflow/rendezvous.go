package workflow

import (
	"context"
	"sync"
)

// Rendezvous implements the per-id one-shot form-data handoff described in
// spec §4.5/§9: a waiter blocks until a matching provide call arrives (or
// its context is cancelled), and a provide call that arrives first is
// stored so a later wait on the same id returns immediately. A second
// provide for an id that already has a stored value is ignored.
type Rendezvous struct {
	mu        sync.Mutex
	pending   map[string]chan map[string]any
	delivered map[string]map[string]any
}

// NewRendezvous returns an empty Rendezvous.
func NewRendezvous() *Rendezvous {
	return &Rendezvous{
		pending:   map[string]chan map[string]any{},
		delivered: map[string]map[string]any{},
	}
}

// Provide delivers data for id. If a Wait call is already blocked on id, it
// is unblocked with data; otherwise data is stored for the next Wait call.
// A second Provide for an id that has already been delivered is a no-op.
func (r *Rendezvous) Provide(id string, data map[string]any) {
	r.mu.Lock()
	if _, done := r.delivered[id]; done {
		r.mu.Unlock()
		return
	}
	r.delivered[id] = data
	ch, waiting := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()

	if waiting {
		ch <- data
		close(ch)
	}
}

// Wait blocks until id is provided, returns immediately if it already was,
// or returns ctx.Err() if ctx is cancelled first.
func (r *Rendezvous) Wait(ctx context.Context, id string) (map[string]any, error) {
	r.mu.Lock()
	if data, done := r.delivered[id]; done {
		r.mu.Unlock()
		return data, nil
	}
	ch, exists := r.pending[id]
	if !exists {
		ch = make(chan map[string]any, 1)
		r.pending[id] = ch
	}
	r.mu.Unlock()

	select {
	case data := <-ch:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
