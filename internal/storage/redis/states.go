package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/crawlkit/frontier/internal/frontier"
)

// StateBackend keeps the state collection in one redis hash. HSCAN
// cursors map directly onto the cleanup pagination contract.
type StateBackend struct {
	client *redis.Client
	key    string
}

// NewStateBackend builds the state backend over an existing connection.
func NewStateBackend(client *redis.Client, frontierName string) *StateBackend {
	return &StateBackend{
		client: client,
		key:    fmt.Sprintf("frontier:%s:states", frontierName),
	}
}

// Get implements frontier.StateBackend.
func (b *StateBackend) Get(ctx context.Context, keys []string) (frontier.StatePage, error) {
	values, err := b.client.HMGet(ctx, b.key, keys...).Result()
	if err != nil {
		return frontier.StatePage{}, frontier.Transient("get states", err)
	}
	page := frontier.StatePage{}
	for i, raw := range values {
		if raw == nil {
			continue
		}
		text, ok := raw.(string)
		if !ok {
			page.Warnings = append(page.Warnings, fmt.Sprintf("unexpected value type for key %s", keys[i]))
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			page.Warnings = append(page.Warnings, fmt.Sprintf("malformed record skipped: %v", err))
			continue
		}
		page.Records = append(page.Records, frontier.StateRecord{Key: keys[i], Value: value})
	}
	return page, nil
}

// Set implements frontier.StateBackend.
func (b *StateBackend) Set(ctx context.Context, records []frontier.StateRecord) error {
	if len(records) == 0 {
		return nil
	}
	fields := make([]any, 0, len(records)*2)
	for _, record := range records {
		data, err := json.Marshal(record.Value)
		if err != nil {
			return frontier.Fatal("encode state value", err)
		}
		fields = append(fields, record.Key, data)
	}
	if err := b.client.HSet(ctx, b.key, fields...).Err(); err != nil {
		return frontier.Transient("set states", err)
	}
	return nil
}

// DeletePage implements frontier.StateBackend using one HSCAN page per
// call; the scan cursor is the continuation cursor.
func (b *StateBackend) DeletePage(ctx context.Context, cursor string) (frontier.CleanupPage, error) {
	var scanCursor uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return frontier.CleanupPage{
				Warnings: []string{fmt.Sprintf("bad cleanup cursor %q: %v", cursor, err)},
			}, nil
		}
		scanCursor = parsed
	}

	fields, next, err := b.client.HScan(ctx, b.key, scanCursor, "", 1024).Result()
	if err != nil {
		return frontier.CleanupPage{}, frontier.Transient("scan states", err)
	}
	page := frontier.CleanupPage{}
	// HSCAN returns alternating field/value pairs.
	names := make([]string, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		names = append(names, fields[i])
	}
	page.Scanned = len(names)
	if len(names) > 0 {
		deleted, err := b.client.HDel(ctx, b.key, names...).Result()
		if err != nil {
			return page, frontier.Transient("delete states", err)
		}
		page.Deleted = int(deleted)
	}
	if next != 0 {
		page.Next = strconv.FormatUint(next, 10)
	}
	return page, nil
}

// Close implements frontier.StateBackend.
func (b *StateBackend) Close() error {
	return b.client.Close()
}
