package sajmqtt

import (
	"context"
	"fmt"
	"sync"
)

// Result is the payload a response frame fulfilled a pending request with.
type Result struct {
	Kind RequestKind

	// Data is the register content of a read response.
	Data []byte

	// Value is the echoed value of a write response. Zero is a legitimate
	// value; presence is signalled by the slot being fulfilled, not by the
	// value itself.
	Value uint16
}

type slot struct {
	kind      RequestKind
	done      chan struct{}
	fulfilled bool
	result    Result
}

// Registry tracks in-flight requests by correlation id. It is the only state
// shared between orchestrator calls and the inbound message path; a single
// mutex guards the map, contention is one map operation per frame.
type Registry struct {
	mu    sync.Mutex
	slots map[uint16]*slot
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[uint16]*slot)}
}

// Register inserts an unfulfilled slot for id. It fails with ErrDuplicateID
// when the id is already in flight.
func (r *Registry) Register(id uint16, kind RequestKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.slots[id]; exists {
		return fmt.Errorf("%w: 0x%04X", ErrDuplicateID, id)
	}
	r.slots[id] = &slot{kind: kind, done: make(chan struct{})}
	return nil
}

// Fulfill delivers a result to the slot registered for id. It reports false
// when no such slot exists (a late response for a call that already finished,
// dropped without error) or when the slot was already fulfilled or the kind
// does not match what the request expects.
func (r *Registry) Fulfill(id uint16, res Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, exists := r.slots[id]
	if !exists || s.fulfilled || s.kind != res.Kind {
		return false
	}
	s.result = res
	s.fulfilled = true
	close(s.done)
	return true
}

// AwaitAll blocks until every id has been fulfilled or ctx is done.
// Fulfillment order across the set is irrelevant; completion is a membership
// condition.
func (r *Registry) AwaitAll(ctx context.Context, ids []uint16) error {
	for _, id := range ids {
		r.mu.Lock()
		s, exists := r.slots[id]
		r.mu.Unlock()
		if !exists {
			return fmt.Errorf("sajmqtt: awaiting unregistered id 0x%04X", id)
		}
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Result returns the fulfilled result for id, if any.
func (r *Registry) Result(id uint16) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, exists := r.slots[id]
	if !exists || !s.fulfilled {
		return Result{}, false
	}
	return s.result, true
}

// Remove deletes the slots for ids. Missing ids are a no-op. It runs on every
// orchestrator exit path so that no slot leaks across calls.
func (r *Registry) Remove(ids ...uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.slots, id)
	}
}

// Len reports the number of in-flight slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
