// Package redis provides redis-backed queue and state backends for
// deployments that keep the frontier on shared infrastructure instead of
// the hosted storage service.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crawlkit/frontier/internal/frontier"
)

// Config holds the redis connection parameters.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects and pings, failing fast on bad configuration.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// QueueBackend keeps each slot as an ordered id list plus a hash of batch
// bodies, so batches can be acknowledged individually by id.
type QueueBackend struct {
	client *redis.Client
}

// NewQueueBackend builds the queue backend over an existing connection.
func NewQueueBackend(client *redis.Client) *QueueBackend {
	return &QueueBackend{client: client}
}

func listKey(frontierName, slot string) string {
	return fmt.Sprintf("frontier:%s:%s:ids", frontierName, slot)
}

func hashKey(frontierName, slot string) string {
	return fmt.Sprintf("frontier:%s:%s:batches", frontierName, slot)
}

type storedBatch struct {
	Entries []storedEntry `json:"entries"`
}

type storedEntry struct {
	Fingerprint string          `json:"fp"`
	Payload     json.RawMessage `json:"qdata"`
}

// Add implements frontier.QueueBackend. Each call persists one batch.
func (b *QueueBackend) Add(ctx context.Context, frontierName, slot string, entries []frontier.QueueEntry) error {
	stored := storedBatch{}
	for _, e := range entries {
		stored.Entries = append(stored.Entries, storedEntry{
			Fingerprint: e.Fingerprint,
			Payload:     json.RawMessage(e.Payload),
		})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return frontier.Fatal("encode batch", err)
	}
	id := uuid.NewString()
	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, hashKey(frontierName, slot), id, data)
	pipe.RPush(ctx, listKey(frontierName, slot), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return frontier.Transient("add batch", err)
	}
	return nil
}

// Read implements frontier.QueueBackend.
func (b *QueueBackend) Read(ctx context.Context, frontierName, slot string, _ int) ([]frontier.Batch, error) {
	ids, err := b.client.LRange(ctx, listKey(frontierName, slot), 0, -1).Result()
	if err != nil {
		return nil, frontier.Transient("read batch ids", err)
	}
	var batches []frontier.Batch
	for _, id := range ids {
		data, err := b.client.HGet(ctx, hashKey(frontierName, slot), id).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, frontier.Transient("read batch body", err)
		}
		var stored storedBatch
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return nil, frontier.Fatal("decode batch body", err)
		}
		batch := frontier.Batch{ID: id}
		for _, e := range stored.Entries {
			batch.Entries = append(batch.Entries, frontier.BatchEntry{
				Fingerprint: e.Fingerprint,
				Payload:     []byte(e.Payload),
			})
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// Delete implements frontier.QueueBackend.
func (b *QueueBackend) Delete(ctx context.Context, frontierName, slot string, batchIDs []string) error {
	pipe := b.client.TxPipeline()
	for _, id := range batchIDs {
		pipe.HDel(ctx, hashKey(frontierName, slot), id)
		pipe.LRem(ctx, listKey(frontierName, slot), 1, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return frontier.Transient("delete batches", err)
	}
	return nil
}

// DeleteSlot implements frontier.QueueBackend.
func (b *QueueBackend) DeleteSlot(ctx context.Context, frontierName, slot string) error {
	if err := b.client.Del(ctx, listKey(frontierName, slot), hashKey(frontierName, slot)).Err(); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Close implements frontier.QueueBackend.
func (b *QueueBackend) Close() error {
	return b.client.Close()
}
