package frontier

import "context"

// QueueBackend is the remote frontier queue contract. Implementations do
// no buffering or retrying of their own; that lives in the queue client.
type QueueBackend interface {
	// Add persists entries to a slot's remote stream.
	Add(ctx context.Context, frontierName, slot string, entries []QueueEntry) error
	// Read returns pending batches for a slot, hinting at a minimum
	// desired entry count. minCount <= 0 means "whatever is available".
	Read(ctx context.Context, frontierName, slot string, minCount int) ([]Batch, error)
	// Delete acknowledges batches by id, removing them from the slot.
	Delete(ctx context.Context, frontierName, slot string, batchIDs []string) error
	// DeleteSlot wipes a slot's remote state.
	DeleteSlot(ctx context.Context, frontierName, slot string) error
	// Close releases the remote session. No calls are valid afterward.
	Close() error
}

// StateBackend is the remote key-value state collection contract.
type StateBackend interface {
	// Get fetches up to FetchPageSize records by key. Missing keys are
	// simply absent from the result.
	Get(ctx context.Context, keys []string) (StatePage, error)
	// Set upserts records.
	Set(ctx context.Context, records []StateRecord) error
	// DeletePage removes one page of the collection, returning the
	// continuation cursor for the next page ("" when done).
	DeletePage(ctx context.Context, cursor string) (CleanupPage, error)
	// Close releases the remote session.
	Close() error
}

// PartitionStrategy maps a fingerprint to a partition index. Strategies
// are pure: identical input always yields the identical partition for a
// fixed slot count.
type PartitionStrategy interface {
	Partition(fingerprint string) int
}

// Metadata stores generic per-crawl bookkeeping in memory. It is a
// collaborator of the orchestrator, not part of the synchronization
// layer itself.
type Metadata interface {
	AddSeeds(seeds []*Request)
	PageCrawled(response *Request)
	LinksExtracted(request *Request, links []*Request)
	RequestError(request *Request, err string)
}
