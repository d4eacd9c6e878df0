package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/crawlkit/frontier/internal/frontier"
)

// StateBackend keeps the state collection in process memory.
type StateBackend struct {
	mu       sync.Mutex
	records  map[string]any
	pageSize int
}

// NewStateBackend constructs an empty in-memory state collection.
// pageSize bounds how many records one DeletePage call removes; zero
// means everything in one page.
func NewStateBackend(pageSize int) *StateBackend {
	return &StateBackend{
		records:  make(map[string]any),
		pageSize: pageSize,
	}
}

// Get implements frontier.StateBackend.
func (b *StateBackend) Get(_ context.Context, keys []string) (frontier.StatePage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	page := frontier.StatePage{}
	for _, key := range keys {
		if value, ok := b.records[key]; ok {
			page.Records = append(page.Records, frontier.StateRecord{Key: key, Value: value})
		}
	}
	return page, nil
}

// Set implements frontier.StateBackend.
func (b *StateBackend) Set(_ context.Context, records []frontier.StateRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, record := range records {
		b.records[record.Key] = record.Value
	}
	return nil
}

// DeletePage implements frontier.StateBackend. Keys are removed in sorted
// order, pageSize at a time; a non-empty Next cursor signals remaining
// pages.
func (b *StateBackend) DeletePage(_ context.Context, _ string) (frontier.CleanupPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.records))
	for key := range b.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	page := frontier.CleanupPage{Scanned: len(keys)}
	limit := len(keys)
	if b.pageSize > 0 && limit > b.pageSize {
		limit = b.pageSize
	}
	for _, key := range keys[:limit] {
		delete(b.records, key)
		page.Deleted++
	}
	if len(b.records) > 0 {
		page.Next = keys[limit-1]
	}
	return page, nil
}

// Close implements frontier.StateBackend.
func (b *StateBackend) Close() error { return nil }

// Len reports the number of stored records.
func (b *StateBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
