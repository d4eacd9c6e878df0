package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/crawlkit/frontier/internal/frontier"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
	})
	return mock
}

func TestQueueAddInsertsBatchAndEntries(t *testing.T) {
	mock := newMockPool(t)
	backend := NewQueueBackend(mock)

	mock.ExpectExec(`INSERT INTO frontier_batches`).
		WithArgs(pgxmock.AnyArg(), "test", "0").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO frontier_entries`).
		WithArgs(pgxmock.AnyArg(), 0, "fp-1", []byte(`{"v":1}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO frontier_entries`).
		WithArgs(pgxmock.AnyArg(), 1, "fp-2", []byte(`{"v":1}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := backend.Add(context.Background(), "test", "0", []frontier.QueueEntry{
		{Fingerprint: "fp-1", Payload: []byte(`{"v":1}`)},
		{Fingerprint: "fp-2", Payload: []byte(`{"v":1}`)},
	})
	require.NoError(t, err)
}

func TestQueueAddTagsFailuresTransient(t *testing.T) {
	mock := newMockPool(t)
	backend := NewQueueBackend(mock)

	mock.ExpectExec(`INSERT INTO frontier_batches`).
		WithArgs(pgxmock.AnyArg(), "test", "0").
		WillReturnError(errors.New("connection refused"))

	err := backend.Add(context.Background(), "test", "0", nil)
	require.Error(t, err)
	require.True(t, frontier.IsTransient(err))
}

func TestQueueReadGroupsRowsIntoBatches(t *testing.T) {
	mock := newMockPool(t)
	backend := NewQueueBackend(mock)

	rows := pgxmock.NewRows([]string{"id", "fingerprint", "payload"}).
		AddRow("batch-1", "fp-1", []byte(`{"u":"a"}`)).
		AddRow("batch-1", "fp-2", []byte(`{"u":"b"}`)).
		AddRow("batch-2", "fp-3", []byte(`{"u":"c"}`))
	mock.ExpectQuery(`SELECT b.id, e.fingerprint, e.payload`).
		WithArgs("test", "0").
		WillReturnRows(rows)

	batches, err := backend.Read(context.Background(), "test", "0", 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, "batch-1", batches[0].ID)
	require.Len(t, batches[0].Entries, 2)
	require.Equal(t, "fp-2", batches[0].Entries[1].Fingerprint)
	require.Equal(t, "batch-2", batches[1].ID)
	require.Len(t, batches[1].Entries, 1)
}

func TestQueueDeleteUsesIDArray(t *testing.T) {
	mock := newMockPool(t)
	backend := NewQueueBackend(mock)

	mock.ExpectExec(`DELETE FROM frontier_batches WHERE frontier = \$1 AND slot = \$2 AND id = ANY\(\$3\)`).
		WithArgs("test", "0", []string{"batch-1", "batch-2"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	require.NoError(t, backend.Delete(context.Background(), "test", "0", []string{"batch-1", "batch-2"}))
}

func TestQueueDeleteSlot(t *testing.T) {
	mock := newMockPool(t)
	backend := NewQueueBackend(mock)

	mock.ExpectExec(`DELETE FROM frontier_batches WHERE frontier = \$1 AND slot = \$2$`).
		WithArgs("test", "7").
		WillReturnResult(pgxmock.NewResult("DELETE", 10))

	require.NoError(t, backend.DeleteSlot(context.Background(), "test", "7"))
}

func TestStatesGetDecodesValues(t *testing.T) {
	mock := newMockPool(t)
	backend := NewStateBackend(mock, "test")

	rows := pgxmock.NewRows([]string{"key", "value"}).
		AddRow("fp-1", []byte(`"CRAWLED"`)).
		AddRow("fp-2", []byte(`not json`)).
		AddRow("fp-3", []byte(`"ERROR"`))
	mock.ExpectQuery(`SELECT key, value FROM frontier_states`).
		WithArgs("test", []string{"fp-1", "fp-2", "fp-3"}).
		WillReturnRows(rows)

	page, err := backend.Get(context.Background(), []string{"fp-1", "fp-2", "fp-3"})
	require.NoError(t, err)
	require.Len(t, page.Records, 2, "undecodable value becomes a warning")
	require.Len(t, page.Warnings, 1)
	require.Equal(t, "CRAWLED", page.Records[0].Value)
	require.Equal(t, "fp-3", page.Records[1].Key)
}

func TestStatesSetUpserts(t *testing.T) {
	mock := newMockPool(t)
	backend := NewStateBackend(mock, "test")

	mock.ExpectExec(`INSERT INTO frontier_states .* ON CONFLICT`).
		WithArgs("test", "fp-1", []byte(`"QUEUED"`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := backend.Set(context.Background(), []frontier.StateRecord{{Key: "fp-1", Value: "QUEUED"}})
	require.NoError(t, err)
}

func TestStatesDeletePageReturnsCursorOnlyWhenFull(t *testing.T) {
	mock := newMockPool(t)
	backend := NewStateBackend(mock, "test")

	full := pgxmock.NewRows([]string{"key"})
	for i := 0; i < cleanupPageSize; i++ {
		full.AddRow(fmt.Sprintf("key-%05d", i))
	}
	mock.ExpectQuery(`DELETE FROM frontier_states`).
		WithArgs("test", "", cleanupPageSize).
		WillReturnRows(full)

	page, err := backend.DeletePage(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, cleanupPageSize, page.Deleted)
	require.Equal(t, fmt.Sprintf("key-%05d", cleanupPageSize-1), page.Next)

	partial := pgxmock.NewRows([]string{"key"}).AddRow("key-99999")
	mock.ExpectQuery(`DELETE FROM frontier_states`).
		WithArgs("test", page.Next, cleanupPageSize).
		WillReturnRows(partial)

	page, err = backend.DeletePage(context.Background(), page.Next)
	require.NoError(t, err)
	require.Equal(t, 1, page.Deleted)
	require.Empty(t, page.Next, "short page ends pagination")
}
