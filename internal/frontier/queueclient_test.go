package frontier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(backend QueueBackend, cfg QueueClientConfig, clock Clock) *QueueClient {
	return quiet(NewQueueClient(backend, cfg, clock, zap.NewNop()))
}

func TestAddEntryBuffersWithoutNetwork(t *testing.T) {
	backend := newStubQueueBackend()
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "fp"}))
	}
	require.Equal(t, 0, backend.addCalls, "buffering must not touch the network")
	require.Equal(t, 5, client.LinkCount("0"))
	require.Equal(t, 5, client.PendingCount("0"))
}

func TestFlushSendsBufferAndResetsPending(t *testing.T) {
	backend := newStubQueueBackend()
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "fp"}))
	}
	n, err := client.Flush(ctx, "0")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 1, backend.addCalls)
	require.Equal(t, 0, client.PendingCount("0"))
	require.Equal(t, 3, client.LinkCount("0"), "produced total survives the flush")

	// Nothing pending: flush is a no-op.
	n, err = client.Flush(ctx, "0")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, backend.addCalls)
}

func TestFlushAllCoversEverySlot(t *testing.T) {
	backend := newStubQueueBackend()
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)
	ctx := context.Background()

	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "a"}))
	require.NoError(t, client.AddEntry(ctx, "1", QueueEntry{Fingerprint: "b"}))
	require.NoError(t, client.AddEntry(ctx, "1", QueueEntry{Fingerprint: "c"}))

	n, err := client.FlushAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 0, client.TotalPendingCount())
	require.Equal(t, 3, client.TotalLinkCount())
}

func TestBatchSizeTriggersFlush(t *testing.T) {
	backend := newStubQueueBackend()
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f", BatchSize: 2}, nil)
	ctx := context.Background()

	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "a"}))
	require.Equal(t, 0, backend.addCalls)
	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "b"}))
	require.Equal(t, 1, backend.addCalls, "hitting batch_size flushes the slot")
	require.Equal(t, 0, client.PendingCount("0"))
}

func TestFlushIntervalTriggersFlush(t *testing.T) {
	backend := newStubQueueBackend()
	clock := newFakeClock()
	client := newTestClient(backend, QueueClientConfig{
		FrontierName:  "f",
		FlushInterval: 30 * time.Second,
	}, clock)
	ctx := context.Background()

	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "a"}))
	require.Equal(t, 0, backend.addCalls)

	clock.Advance(31 * time.Second)
	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "b"}))
	require.Equal(t, 1, backend.addCalls, "interval elapsed, add triggers the flush")
}

func TestReadRetriesTenTimesThenReturnsEmpty(t *testing.T) {
	backend := newStubQueueBackend()
	backend.failReads = 100
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)

	batches := client.Read(context.Background(), "0", 10)
	require.Empty(t, batches, "exhausted retries degrade to no data")
	require.Equal(t, 10, backend.readCalls)
}

func TestReadRecoversWithinRetryBudget(t *testing.T) {
	backend := newStubQueueBackend()
	backend.failReads = 2
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)
	ctx := context.Background()

	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "a"}))
	_, err := client.Flush(ctx, "0")
	require.NoError(t, err)

	batches := client.Read(ctx, "0", 10)
	require.Len(t, batches, 1)
	require.Equal(t, 3, backend.readCalls)
}

func TestReadStopsOnFatalError(t *testing.T) {
	backend := newStubQueueBackend()
	backend.fatalReads = true
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)

	batches := client.Read(context.Background(), "0", 10)
	require.Empty(t, batches)
	require.Equal(t, 1, backend.readCalls, "fatal errors are not retried")
}

func TestDeleteGivesUpSilently(t *testing.T) {
	backend := newStubQueueBackend()
	backend.failDeletes = 100
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)

	// Must not panic or error; undeleted batches will simply redeliver.
	client.Delete(context.Background(), "0", []string{"batch-1"})
	require.Empty(t, backend.deleteCalls["0"])
}

func TestCloseFlushesPendingWrites(t *testing.T) {
	backend := newStubQueueBackend()
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)
	ctx := context.Background()

	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "a"}))
	require.NoError(t, client.Close(ctx))
	require.Equal(t, 1, backend.addCalls, "close must flush buffered entries")
	require.True(t, backend.closed)

	require.ErrorIs(t, client.Close(ctx), ErrClientClosed)
	require.ErrorIs(t, client.AddEntry(ctx, "0", QueueEntry{}), ErrClientClosed)
}

func TestFlushFailureKeepsEntriesBuffered(t *testing.T) {
	backend := &failingAddBackend{stub: newStubQueueBackend(), failures: 1}
	client := newTestClient(backend, QueueClientConfig{FrontierName: "f"}, nil)
	ctx := context.Background()

	require.NoError(t, client.AddEntry(ctx, "0", QueueEntry{Fingerprint: "a"}))
	n, err := client.Flush(ctx, "0")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, client.PendingCount("0"), "failed flush keeps the buffer")

	n, err = client.Flush(ctx, "0")
	require.NoError(t, err)
	require.Equal(t, 1, n, "next flush retries the same entries")
}

// failingAddBackend fails the first N Add calls, then delegates.
type failingAddBackend struct {
	stub     *stubQueueBackend
	failures int
}

func (f *failingAddBackend) Add(ctx context.Context, frontierName, slot string, entries []QueueEntry) error {
	if f.failures > 0 {
		f.failures--
		return Transient("add", errTimeout)
	}
	return f.stub.Add(ctx, frontierName, slot, entries)
}

func (f *failingAddBackend) Read(ctx context.Context, frontierName, slot string, minCount int) ([]Batch, error) {
	return f.stub.Read(ctx, frontierName, slot, minCount)
}

func (f *failingAddBackend) Delete(ctx context.Context, frontierName, slot string, batchIDs []string) error {
	return f.stub.Delete(ctx, frontierName, slot, batchIDs)
}

func (f *failingAddBackend) DeleteSlot(ctx context.Context, frontierName, slot string) error {
	return f.stub.DeleteSlot(ctx, frontierName, slot)
}

func (f *failingAddBackend) Close() error { return f.stub.Close() }
