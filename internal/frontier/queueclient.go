package frontier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crawlkit/frontier/internal/metrics"
)

// ErrClientClosed is returned by operations after Close.
var ErrClientClosed = errors.New("queue client is closed")

// QueueClientConfig controls buffering thresholds. A zero BatchSize
// disables size-triggered flush; a zero FlushInterval disables
// time-triggered flush. Thresholds are evaluated opportunistically on
// AddEntry; there is no background timer.
type QueueClientConfig struct {
	FrontierName  string
	BatchSize     int
	FlushInterval time.Duration
}

// slotState tracks the per-slot send buffer and counters. Counters are
// explicit structs initialized to zero, not implicit defaults.
type slotState struct {
	buffer    []QueueEntry
	produced  int
	pending   int
	lastFlush time.Time
}

// QueueClient buffers outgoing entries per slot and performs all remote
// queue I/O with retry. It assumes single-threaded access, matching the
// one-process-per-frontier-participant model.
type QueueClient struct {
	backend QueueBackend
	cfg     QueueClientConfig
	retryer *Retryer
	clock   Clock
	slots   map[string]*slotState
	logger  *zap.Logger
	closed  bool
}

// NewQueueClient wraps backend with buffering and the retry policy.
func NewQueueClient(backend QueueBackend, cfg QueueClientConfig, clock Clock, logger *zap.Logger) *QueueClient {
	if clock == nil {
		clock = SystemClock{}
	}
	return &QueueClient{
		backend: backend,
		cfg:     cfg,
		retryer: NewRetryer(logger),
		clock:   clock,
		slots:   make(map[string]*slotState),
		logger:  logger,
	}
}

// Retryer exposes the retry runner so callers can inject a fake sleeper
// in tests.
func (c *QueueClient) Retryer() *Retryer { return c.retryer }

func (c *QueueClient) slot(name string) *slotState {
	s, ok := c.slots[name]
	if !ok {
		s = &slotState{lastFlush: c.clock.Now()}
		c.slots[name] = s
	}
	return s
}

// AddEntry appends entry to the slot's send buffer. It never performs
// network I/O of its own and cannot fail while the client is open, but a
// size or interval threshold crossing triggers an opportunistic flush of
// that slot.
func (c *QueueClient) AddEntry(ctx context.Context, slot string, entry QueueEntry) error {
	if c.closed {
		return ErrClientClosed
	}
	s := c.slot(slot)
	s.buffer = append(s.buffer, entry)
	s.produced++
	s.pending++
	metrics.LinksProduced(slot, 1)

	if c.cfg.BatchSize > 0 && len(s.buffer) >= c.cfg.BatchSize {
		c.flushSlot(ctx, slot, s)
	} else if c.cfg.FlushInterval > 0 && c.clock.Now().Sub(s.lastFlush) >= c.cfg.FlushInterval {
		c.flushSlot(ctx, slot, s)
	}
	return nil
}

// Flush forces the named slot's buffered entries to the remote store and
// returns the number of entries sent.
func (c *QueueClient) Flush(ctx context.Context, slot string) (int, error) {
	if c.closed {
		return 0, ErrClientClosed
	}
	s, ok := c.slots[slot]
	if !ok || s.pending == 0 {
		return 0, nil
	}
	return c.flushSlot(ctx, slot, s), nil
}

// FlushAll flushes every slot with pending entries and returns the total
// flushed.
func (c *QueueClient) FlushAll(ctx context.Context) (int, error) {
	if c.closed {
		return 0, ErrClientClosed
	}
	total := 0
	for name, s := range c.slots {
		if s.pending > 0 {
			total += c.flushSlot(ctx, name, s)
		}
	}
	return total, nil
}

// flushSlot sends the buffer via the backend. On failure the buffer and
// pending count are left intact so a later flush retries the same
// entries.
func (c *QueueClient) flushSlot(ctx context.Context, name string, s *slotState) int {
	if len(s.buffer) == 0 {
		s.pending = 0
		s.lastFlush = c.clock.Now()
		return 0
	}
	if err := c.backend.Add(ctx, c.cfg.FrontierName, name, s.buffer); err != nil {
		c.logger.Error("flush failed, keeping entries buffered",
			zap.String("slot", name),
			zap.Int("entries", len(s.buffer)),
			zap.Error(err),
		)
		return 0
	}
	n := len(s.buffer)
	s.buffer = nil
	s.pending = 0
	s.lastFlush = c.clock.Now()
	metrics.LinksFlushed(name, n)
	c.logger.Debug("flushed slot",
		zap.String("slot", name),
		zap.Int("entries", n),
	)
	return n
}

// Read requests batches for the slot, retrying transient failures. After
// exhausting retries it returns an empty slice: the caller cannot
// distinguish "truly empty" from "temporarily unreachable", by contract.
func (c *QueueClient) Read(ctx context.Context, slot string, minCount int) []Batch {
	if c.closed {
		return nil
	}
	var batches []Batch
	ok := c.retryer.Do(fmt.Sprintf("read %s/%s", c.cfg.FrontierName, slot), func() error {
		var err error
		batches, err = c.backend.Read(ctx, c.cfg.FrontierName, slot, minCount)
		if err != nil {
			metrics.RetryAttempt("read")
		}
		return err
	})
	if !ok {
		return nil
	}
	metrics.BatchesRead(slot, len(batches))
	return batches
}

// Delete acknowledges batches, retrying transient failures. Exhaustion is
// silent: unacknowledged batches are redelivered on a later read, which
// is exactly the at-least-once guarantee.
func (c *QueueClient) Delete(ctx context.Context, slot string, batchIDs []string) {
	if c.closed || len(batchIDs) == 0 {
		return
	}
	ok := c.retryer.Do(fmt.Sprintf("delete %s/%s", c.cfg.FrontierName, slot), func() error {
		err := c.backend.Delete(ctx, c.cfg.FrontierName, slot, batchIDs)
		if err != nil {
			metrics.RetryAttempt("delete")
		}
		return err
	})
	if ok {
		metrics.BatchesAcked(slot, len(batchIDs))
	}
}

// DeleteSlot wipes a slot's remote state. Used only for clean starts.
func (c *QueueClient) DeleteSlot(ctx context.Context, slot string) error {
	if c.closed {
		return ErrClientClosed
	}
	if err := c.backend.DeleteSlot(ctx, c.cfg.FrontierName, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Close flushes all pending entries and releases the backend session.
// It must be called exactly once; no operations are valid afterward.
func (c *QueueClient) Close(ctx context.Context) error {
	if c.closed {
		return ErrClientClosed
	}
	if _, err := c.FlushAll(ctx); err != nil {
		return err
	}
	c.closed = true
	if err := c.backend.Close(); err != nil {
		return fmt.Errorf("close queue backend: %w", err)
	}
	return nil
}

// LinkCount returns the produced total for one slot.
func (c *QueueClient) LinkCount(slot string) int {
	if s, ok := c.slots[slot]; ok {
		return s.produced
	}
	return 0
}

// TotalLinkCount returns the produced total across all slots.
func (c *QueueClient) TotalLinkCount() int {
	total := 0
	for _, s := range c.slots {
		total += s.produced
	}
	return total
}

// PendingCount returns the not-yet-flushed count for one slot.
func (c *QueueClient) PendingCount(slot string) int {
	if s, ok := c.slots[slot]; ok {
		return s.pending
	}
	return 0
}

// TotalPendingCount returns the not-yet-flushed count across all slots.
func (c *QueueClient) TotalPendingCount() int {
	total := 0
	for _, s := range c.slots {
		total += s.pending
	}
	return total
}
