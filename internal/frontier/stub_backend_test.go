package frontier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errTimeout = errors.New("timeout")

// stubQueueBackend is the in-test double for the remote queue. Every Add
// call persists one batch, like the real store.
type stubQueueBackend struct {
	mu sync.Mutex

	seq     int
	batches map[string][]Batch

	addCalls    int
	readCalls   int
	deleteCalls map[string][][]string

	failReads   int // fail this many reads with a transient error
	failDeletes int
	fatalReads  bool

	// always, when set, is returned by every Read regardless of state,
	// simulating an unbounded remote backlog.
	always []Batch

	closed bool
}

func newStubQueueBackend() *stubQueueBackend {
	return &stubQueueBackend{
		batches:     make(map[string][]Batch),
		deleteCalls: make(map[string][][]string),
	}
}

func (s *stubQueueBackend) key(frontierName, slot string) string {
	return frontierName + "/" + slot
}

func (s *stubQueueBackend) Add(_ context.Context, frontierName, slot string, entries []QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls++
	s.seq++
	batch := Batch{ID: fmt.Sprintf("batch-%d", s.seq)}
	for _, e := range entries {
		batch.Entries = append(batch.Entries, BatchEntry{Fingerprint: e.Fingerprint, Payload: e.Payload})
	}
	key := s.key(frontierName, slot)
	s.batches[key] = append(s.batches[key], batch)
	return nil
}

func (s *stubQueueBackend) Read(_ context.Context, frontierName, slot string, _ int) ([]Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readCalls++
	if s.fatalReads {
		return nil, Fatal("read", errors.New("unauthorized"))
	}
	if s.failReads > 0 {
		s.failReads--
		return nil, Transient("read", errors.New("timeout"))
	}
	if s.always != nil {
		return s.always, nil
	}
	pending := s.batches[s.key(frontierName, slot)]
	out := make([]Batch, len(pending))
	copy(out, pending)
	return out, nil
}

func (s *stubQueueBackend) Delete(_ context.Context, frontierName, slot string, batchIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeletes > 0 {
		s.failDeletes--
		return Transient("delete", errors.New("connection reset"))
	}
	ids := make([]string, len(batchIDs))
	copy(ids, batchIDs)
	s.deleteCalls[slot] = append(s.deleteCalls[slot], ids)
	drop := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		drop[id] = true
	}
	key := s.key(frontierName, slot)
	var kept []Batch
	for _, b := range s.batches[key] {
		if !drop[b.ID] {
			kept = append(kept, b)
		}
	}
	s.batches[key] = kept
	return nil
}

func (s *stubQueueBackend) DeleteSlot(_ context.Context, frontierName, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, s.key(frontierName, slot))
	return nil
}

func (s *stubQueueBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// quiet returns a retry runner that does not actually sleep.
func quiet(c *QueueClient) *QueueClient {
	c.Retryer().Sleep = func(time.Duration) {}
	return c
}
