package pgstore

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEntryRepo_InsertBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewLogEntryRepo(mock)
	ctx := t.Context()

	t.Run("Should no-op on an empty batch", func(t *testing.T) {
		require.NoError(t, repo.InsertBatch(ctx, nil))
	})

	t.Run("Should insert every entry in one statement", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO log_entries").WillReturnResult(pgxmock.NewResult("INSERT", 2))
		err := repo.InsertBatch(ctx, []LogEntry{
			{ExecutionID: "exec-1", NodeID: "n1", Level: "info", Message: "started"},
			{ExecutionID: "exec-1", NodeID: "n1", Level: "info", Message: "completed"},
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLogEntryRepo_Query(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewLogEntryRepo(mock)
	ctx := t.Context()

	t.Run("Should return matching rows decoded from jsonb fields", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM log_entries").
			WithArgs("exec-1").
			WillReturnRows(pgxmock.NewRows(
				[]string{"id", "execution_id", "node_id", "level", "message", "fields", "created_at"},
			).AddRow(int64(1), "exec-1", "n1", "info", "started", []byte(`{"node_type":"ACTION"}`), time.Now()))

		rows, err := repo.Query(ctx, LogFilter{ExecutionID: "exec-1"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "started", rows[0].Message)
		assert.Equal(t, "ACTION", rows[0].Fields["node_type"])
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLogEntryRepo_CountByExecution(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewLogEntryRepo(mock)
	ctx := t.Context()

	t.Run("Should return the total row count for an execution", func(t *testing.T) {
		mock.ExpectQuery("SELECT count").
			WithArgs("exec-1").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountByExecution(ctx, "exec-1")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
