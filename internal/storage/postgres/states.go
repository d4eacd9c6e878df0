package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crawlkit/frontier/internal/frontier"
)

// cleanupPageSize bounds how many records one DeletePage call removes.
const cleanupPageSize = 1024

// StateBackend implements frontier.StateBackend on the frontier_states
// table.
type StateBackend struct {
	pool     Pool
	frontier string
}

// NewStateBackend builds the state backend over an existing pool.
func NewStateBackend(pool Pool, frontierName string) *StateBackend {
	return &StateBackend{pool: pool, frontier: frontierName}
}

// Get implements frontier.StateBackend.
func (b *StateBackend) Get(ctx context.Context, keys []string) (frontier.StatePage, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT key, value FROM frontier_states WHERE frontier = $1 AND key = ANY($2)`,
		b.frontier, keys,
	)
	if err != nil {
		return frontier.StatePage{}, frontier.Transient("get states", err)
	}
	defer rows.Close()

	page := frontier.StatePage{}
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return page, frontier.Transient("scan state row", err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			page.Warnings = append(page.Warnings, fmt.Sprintf("malformed record skipped: %v", err))
			continue
		}
		page.Records = append(page.Records, frontier.StateRecord{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		return page, frontier.Transient("get states", err)
	}
	return page, nil
}

// Set implements frontier.StateBackend.
func (b *StateBackend) Set(ctx context.Context, records []frontier.StateRecord) error {
	for _, record := range records {
		value, err := json.Marshal(record.Value)
		if err != nil {
			return frontier.Fatal("encode state value", err)
		}
		if _, err := b.pool.Exec(ctx,
			`INSERT INTO frontier_states (frontier, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (frontier, key) DO UPDATE SET value = EXCLUDED.value`,
			b.frontier, record.Key, value,
		); err != nil {
			return frontier.Transient("set state", err)
		}
	}
	return nil
}

// DeletePage implements frontier.StateBackend. Keys are removed in sorted
// order one page at a time; the last deleted key is the continuation
// cursor.
func (b *StateBackend) DeletePage(ctx context.Context, cursor string) (frontier.CleanupPage, error) {
	rows, err := b.pool.Query(ctx,
		`DELETE FROM frontier_states
		  WHERE frontier = $1 AND key IN (
		        SELECT key FROM frontier_states
		         WHERE frontier = $1 AND key > $2
		         ORDER BY key LIMIT $3)
		  RETURNING key`,
		b.frontier, cursor, cleanupPageSize,
	)
	if err != nil {
		return frontier.CleanupPage{}, frontier.Transient("delete state page", err)
	}
	defer rows.Close()

	page := frontier.CleanupPage{}
	last := ""
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return page, frontier.Transient("scan deleted key", err)
		}
		page.Deleted++
		if key > last {
			last = key
		}
	}
	if err := rows.Err(); err != nil {
		return page, frontier.Transient("delete state page", err)
	}
	page.Scanned = page.Deleted
	if page.Deleted == cleanupPageSize {
		page.Next = last
	}
	return page, nil
}

// Close implements frontier.StateBackend.
func (b *StateBackend) Close() error {
	b.pool.Close()
	return nil
}
