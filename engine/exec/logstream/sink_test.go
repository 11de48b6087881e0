package logstream

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
)

func TestPostgresSink_Write(t *testing.T) {
	t.Run("Should insert every entry as one batch", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.ExpectExec("INSERT INTO log_entries").WillReturnResult(pgxmock.NewResult("INSERT", 2))

		sink := NewPostgresSink(pgstore.NewLogEntryRepo(mock))
		err = sink.Write(context.Background(), []Entry{
			{ExecutionID: "e1", NodeID: "n1", Level: "info", Message: "a"},
			{ExecutionID: "e1", NodeID: "n1", Level: "info", Message: "b"},
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

type erroringSink struct{ err error }

func (e erroringSink) Write(context.Context, []Entry) error { return e.err }

type countingSink struct{ n int }

func (c *countingSink) Write(_ context.Context, entries []Entry) error {
	c.n += len(entries)
	return nil
}

func TestMultiSink_Write(t *testing.T) {
	t.Run("Should write to every sink and return the first error", func(t *testing.T) {
		boom := errors.New("boom")
		counter := &countingSink{}
		multi := MultiSink{erroringSink{err: boom}, counter}

		err := multi.Write(context.Background(), []Entry{{Message: "a"}})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, counter.n)
	})

	t.Run("Should return nil when every sink succeeds", func(t *testing.T) {
		counter := &countingSink{}
		multi := MultiSink{counter, counter}
		require.NoError(t, multi.Write(context.Background(), []Entry{{Message: "a"}}))
		assert.Equal(t, 2, counter.n)
	})
}
