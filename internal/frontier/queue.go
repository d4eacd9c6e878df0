package frontier

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Queue composes the partitioner and the queue client: it turns
// scheduling decisions into serialized remote entries and remote batches
// back into requests. A given slot alternates between producing
// (Schedule) and consuming (GetNextRequests); one call only ever plays
// one role.
type Queue struct {
	client      *QueueClient
	partitioner PartitionStrategy
	slotPrefix  string
	partitions  []string
	clock       Clock
	logger      *zap.Logger
}

// QueueConfig holds the queue adapter knobs.
type QueueConfig struct {
	SlotsCount     int
	SlotPrefix     string
	CleanupOnStart bool
}

// NewQueue builds the adapter. With CleanupOnStart set, every slot is
// wiped before use; a wipe failure surfaces immediately as a
// construction failure.
func NewQueue(ctx context.Context, client *QueueClient, partitioner PartitionStrategy, cfg QueueConfig, clock Clock, logger *zap.Logger) (*Queue, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	partitions := make([]string, 0, cfg.SlotsCount)
	for i := 0; i < cfg.SlotsCount; i++ {
		partitions = append(partitions, cfg.SlotPrefix+strconv.Itoa(i))
	}
	q := &Queue{
		client:      client,
		partitioner: partitioner,
		slotPrefix:  cfg.SlotPrefix,
		partitions:  partitions,
		clock:       clock,
		logger:      logger,
	}
	if cfg.CleanupOnStart {
		for _, slot := range partitions {
			if err := client.DeleteSlot(ctx, slot); err != nil {
				return nil, fmt.Errorf("cleanup slot %s: %w", slot, err)
			}
		}
	}
	return q, nil
}

// Partitions returns the slot names in index order.
func (q *Queue) Partitions() []string { return q.partitions }

// Schedule buffers an entry for every item whose Schedule flag is set.
// Items with the flag unset are skipped with no side effect.
func (q *Queue) Schedule(ctx context.Context, items []ScheduleItem) error {
	scheduled := 0
	for _, item := range items {
		if !item.Schedule {
			continue
		}
		if err := q.processLink(ctx, item.Request, item.Score); err != nil {
			return err
		}
		scheduled++
	}
	q.logger.Info("scheduled links", zap.Int("count", scheduled))
	return nil
}

// processLink builds the queue entry for one request and buffers it on
// the slot its fingerprint routes to.
func (q *Queue) processLink(ctx context.Context, link *Request, score float64) error {
	fp := link.URL
	priority := 0
	if p, ok := link.Meta[MetaPriority].(int); ok {
		priority = p
	}
	// An explicit override in meta wins over the URL-derived default.
	if override, ok := link.Meta[MetaOverride].(map[string]any); ok {
		if v, ok := override["fp"].(string); ok && v != "" {
			fp = v
		}
		if v, ok := override["p"].(int); ok {
			priority = v
		}
	}

	payload, err := EncodePayload(link)
	if err != nil {
		return fmt.Errorf("encode request %s: %w", link.URL, err)
	}

	partition := q.partitioner.Partition(link.Fingerprint())
	slot := q.slotPrefix + strconv.Itoa(partition)
	_ = score // scores order nothing on the remote side; priority travels in the entry
	return q.client.AddEntry(ctx, slot, QueueEntry{
		Fingerprint: fp,
		Priority:    priority,
		Payload:     payload,
	})
}

// GetNextRequests reads and acknowledges batches from one partition until
// maxCount requests have accumulated or the last read signalled
// exhaustion (a batch smaller than maxCount). Batches are acknowledged
// atomically, so a final over-full batch is returned whole and the
// result may exceed maxCount.
func (q *Queue) GetNextRequests(ctx context.Context, maxCount int, partitionID string) []*Request {
	var out []*Request
	data := true
	for data && len(out) < maxCount {
		data = false
		var consumed []string
		for _, batch := range q.client.Read(ctx, partitionID, maxCount) {
			data = len(batch.Entries) == maxCount
			q.logger.Debug("got batch",
				zap.String("batch_id", batch.ID),
				zap.Int("size", len(batch.Entries)),
			)
			for _, entry := range batch.Entries {
				request, err := DecodePayload(entry.Payload)
				if err != nil {
					q.logger.Error("dropping undecodable entry",
						zap.String("batch_id", batch.ID),
						zap.String("fingerprint", entry.Fingerprint),
						zap.Error(err),
					)
					continue
				}
				if request.URL == "" {
					request.URL = entry.Fingerprint
				}
				request.Meta[MetaCreatedAt] = q.clock.Now()
				request.Meta[MetaDepth] = 0
				request.ClientMeta()
				out = append(out, request)
			}
			consumed = append(consumed, batch.ID)
		}
		if len(consumed) > 0 {
			q.client.Delete(ctx, partitionID, consumed)
		}
	}
	return out
}

// Count reads every partition without acknowledging anything and sums the
// entry counts. A lower-bound estimate: remote reads may be capped per
// call.
func (q *Queue) Count(ctx context.Context) int {
	count := 0
	for _, partition := range q.partitions {
		for _, batch := range q.client.Read(ctx, partition, 0) {
			count += len(batch.Entries)
		}
	}
	return count
}

// WipeSlots deletes the remote state of every partition.
func (q *Queue) WipeSlots(ctx context.Context) error {
	for _, slot := range q.partitions {
		if err := q.client.DeleteSlot(ctx, slot); err != nil {
			return fmt.Errorf("wipe slot %s: %w", slot, err)
		}
	}
	return nil
}

// Flush forces pending buffered writes for every slot.
func (q *Queue) Flush(ctx context.Context) (int, error) {
	return q.client.FlushAll(ctx)
}

// Close flushes and releases the queue client.
func (q *Queue) Close(ctx context.Context) error {
	return q.client.Close(ctx)
}
