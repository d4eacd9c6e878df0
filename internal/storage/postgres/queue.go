// Package postgres provides Postgres-backed queue and state backends for
// self-hosted frontiers.
//
// Schema:
//
//	CREATE TABLE frontier_batches (
//	    id         UUID PRIMARY KEY,
//	    frontier   TEXT NOT NULL,
//	    slot       TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE TABLE frontier_entries (
//	    batch_id    UUID NOT NULL REFERENCES frontier_batches(id) ON DELETE CASCADE,
//	    ord         INT NOT NULL,
//	    fingerprint TEXT NOT NULL,
//	    payload     JSONB NOT NULL,
//	    PRIMARY KEY (batch_id, ord)
//	);
//	CREATE TABLE frontier_states (
//	    frontier TEXT NOT NULL,
//	    key      TEXT NOT NULL,
//	    value    JSONB NOT NULL,
//	    PRIMARY KEY (frontier, key)
//	);
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crawlkit/frontier/internal/frontier"
)

// Pool is the narrow pgxpool surface the backends use; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool connects a pgx pool, failing fast on a bad DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// QueueBackend implements frontier.QueueBackend on Postgres. One Add call
// persists one batch.
type QueueBackend struct {
	pool Pool
}

// NewQueueBackend builds the queue backend over an existing pool.
func NewQueueBackend(pool Pool) *QueueBackend {
	return &QueueBackend{pool: pool}
}

// Add implements frontier.QueueBackend.
func (b *QueueBackend) Add(ctx context.Context, frontierName, slot string, entries []frontier.QueueEntry) error {
	batchID := uuid.NewString()
	if _, err := b.pool.Exec(ctx,
		`INSERT INTO frontier_batches (id, frontier, slot) VALUES ($1, $2, $3)`,
		batchID, frontierName, slot,
	); err != nil {
		return frontier.Transient("insert batch", err)
	}
	for i, e := range entries {
		if _, err := b.pool.Exec(ctx,
			`INSERT INTO frontier_entries (batch_id, ord, fingerprint, payload) VALUES ($1, $2, $3, $4)`,
			batchID, i, e.Fingerprint, e.Payload,
		); err != nil {
			return frontier.Transient("insert entry", err)
		}
	}
	return nil
}

// Read implements frontier.QueueBackend.
func (b *QueueBackend) Read(ctx context.Context, frontierName, slot string, _ int) ([]frontier.Batch, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT b.id, e.fingerprint, e.payload
		   FROM frontier_batches b
		   JOIN frontier_entries e ON e.batch_id = b.id
		  WHERE b.frontier = $1 AND b.slot = $2
		  ORDER BY b.created_at, b.id, e.ord`,
		frontierName, slot,
	)
	if err != nil {
		return nil, frontier.Transient("read batches", err)
	}
	defer rows.Close()

	var batches []frontier.Batch
	var current *frontier.Batch
	for rows.Next() {
		var id, fingerprint string
		var payload []byte
		if err := rows.Scan(&id, &fingerprint, &payload); err != nil {
			return nil, frontier.Transient("scan batch row", err)
		}
		if current == nil || current.ID != id {
			batches = append(batches, frontier.Batch{ID: id})
			current = &batches[len(batches)-1]
		}
		current.Entries = append(current.Entries, frontier.BatchEntry{
			Fingerprint: fingerprint,
			Payload:     payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, frontier.Transient("read batches", err)
	}
	return batches, nil
}

// Delete implements frontier.QueueBackend.
func (b *QueueBackend) Delete(ctx context.Context, frontierName, slot string, batchIDs []string) error {
	if _, err := b.pool.Exec(ctx,
		`DELETE FROM frontier_batches WHERE frontier = $1 AND slot = $2 AND id = ANY($3)`,
		frontierName, slot, batchIDs,
	); err != nil {
		return frontier.Transient("delete batches", err)
	}
	return nil
}

// DeleteSlot implements frontier.QueueBackend.
func (b *QueueBackend) DeleteSlot(ctx context.Context, frontierName, slot string) error {
	if _, err := b.pool.Exec(ctx,
		`DELETE FROM frontier_batches WHERE frontier = $1 AND slot = $2`,
		frontierName, slot,
	); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Close implements frontier.QueueBackend.
func (b *QueueBackend) Close() error {
	b.pool.Close()
	return nil
}
