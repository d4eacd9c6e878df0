// Package memory provides in-memory backend implementations for
// development and testing.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/crawlkit/frontier/internal/frontier"
)

// QueueBackend keeps slot streams in process memory. Every Add call
// persists one batch, mirroring the remote store's write granularity.
type QueueBackend struct {
	mu     sync.Mutex
	slots  map[string][]frontier.Batch
	closed bool
}

// NewQueueBackend constructs an empty in-memory queue.
func NewQueueBackend() *QueueBackend {
	return &QueueBackend{slots: make(map[string][]frontier.Batch)}
}

func (b *QueueBackend) key(frontierName, slot string) string {
	return frontierName + "/" + slot
}

// Add implements frontier.QueueBackend.
func (b *QueueBackend) Add(_ context.Context, frontierName, slot string, entries []frontier.QueueEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("memory queue backend is closed")
	}
	batch := frontier.Batch{ID: uuid.NewString()}
	for _, e := range entries {
		batch.Entries = append(batch.Entries, frontier.BatchEntry{
			Fingerprint: e.Fingerprint,
			Payload:     e.Payload,
		})
	}
	key := b.key(frontierName, slot)
	b.slots[key] = append(b.slots[key], batch)
	return nil
}

// Read implements frontier.QueueBackend. All pending batches are
// returned; minCount is only a hint and is ignored here.
func (b *QueueBackend) Read(_ context.Context, frontierName, slot string, _ int) ([]frontier.Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("memory queue backend is closed")
	}
	pending := b.slots[b.key(frontierName, slot)]
	out := make([]frontier.Batch, len(pending))
	copy(out, pending)
	return out, nil
}

// Delete implements frontier.QueueBackend.
func (b *QueueBackend) Delete(_ context.Context, frontierName, slot string, batchIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("memory queue backend is closed")
	}
	drop := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		drop[id] = true
	}
	key := b.key(frontierName, slot)
	var kept []frontier.Batch
	for _, batch := range b.slots[key] {
		if !drop[batch.ID] {
			kept = append(kept, batch)
		}
	}
	b.slots[key] = kept
	return nil
}

// DeleteSlot implements frontier.QueueBackend.
func (b *QueueBackend) DeleteSlot(_ context.Context, frontierName, slot string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.slots, b.key(frontierName, slot))
	return nil
}

// Close implements frontier.QueueBackend.
func (b *QueueBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
