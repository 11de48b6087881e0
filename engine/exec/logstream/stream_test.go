package logstream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink records every batch it's given.
type fakeSink struct {
	mu      sync.Mutex
	batches [][]Entry
}

func (f *fakeSink) Write(_ context.Context, entries []Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]Entry(nil), entries...))
	return nil
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestStream_Append(t *testing.T) {
	t.Run("Should drop the oldest entry once capacity is exceeded", func(t *testing.T) {
		s := New(2, nil, nil)
		ctx := t.Context()
		s.Append(ctx, Entry{ExecutionID: "e1", Message: "one"})
		s.Append(ctx, Entry{ExecutionID: "e1", Message: "two"})
		s.Append(ctx, Entry{ExecutionID: "e1", Message: "three"})

		got := s.Query(Filter{ExecutionID: "e1"})
		require.Len(t, got, 2)
		assert.Equal(t, "two", got[0].Message)
		assert.Equal(t, "three", got[1].Message)
	})

	t.Run("Should flush a full batch to the sink automatically", func(t *testing.T) {
		sink := &fakeSink{}
		s := New(100, sink, nil)
		s.batchSize = 3
		ctx := t.Context()
		for i := 0; i < 3; i++ {
			s.Append(ctx, Entry{ExecutionID: "e1", Message: "x"})
		}
		assert.Equal(t, 3, sink.total())
	})

	t.Run("Should flush pending entries on demand", func(t *testing.T) {
		sink := &fakeSink{}
		s := New(100, sink, nil)
		ctx := t.Context()
		s.Append(ctx, Entry{ExecutionID: "e1", Message: "x"})
		assert.Equal(t, 0, sink.total())
		s.Flush(ctx)
		assert.Equal(t, 1, sink.total())
	})
}

func TestStream_Query(t *testing.T) {
	s := New(100, nil, nil)
	ctx := t.Context()
	s.Append(ctx, Entry{ExecutionID: "e1", NodeID: "n1", Level: "info", Message: "a"})
	s.Append(ctx, Entry{ExecutionID: "e1", NodeID: "n2", Level: "error", Message: "b"})
	s.Append(ctx, Entry{ExecutionID: "e2", NodeID: "n1", Level: "info", Message: "c"})

	t.Run("Should filter by execution_id", func(t *testing.T) {
		got := s.Query(Filter{ExecutionID: "e1"})
		assert.Len(t, got, 2)
	})

	t.Run("Should filter by node_id and level together", func(t *testing.T) {
		got := s.Query(Filter{ExecutionID: "e1", NodeID: "n2", Level: "error"})
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Message)
	})

	t.Run("Should apply limit and offset over the matched set", func(t *testing.T) {
		got := s.Query(Filter{Limit: 1, Offset: 1})
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Message)
	})

	t.Run("Should return nil once offset exceeds the matched set", func(t *testing.T) {
		got := s.Query(Filter{ExecutionID: "e1", Offset: 10})
		assert.Nil(t, got)
	})
}

func TestStream_Summarize(t *testing.T) {
	t.Run("Should aggregate phase counts and duration stats", func(t *testing.T) {
		s := New(100, nil, nil)
		ctx := t.Context()
		s.Append(ctx, Entry{ExecutionID: "e1", Message: "a"})
		s.Append(ctx, Entry{ExecutionID: "e1", Message: "b"})

		sum := s.Summarize("e1", []NodeTiming{
			{Phase: "COMPLETED", Duration: 100 * time.Millisecond},
			{Phase: "COMPLETED", Duration: 300 * time.Millisecond},
			{Phase: "FAILED", Duration: 50 * time.Millisecond},
		})

		assert.Equal(t, 2, sum.LogCount)
		assert.Equal(t, 2, sum.NodeCountByPhase["COMPLETED"])
		assert.Equal(t, 1, sum.NodeCountByPhase["FAILED"])
		assert.Equal(t, 450*time.Millisecond, sum.TotalDuration)
		assert.Equal(t, 150*time.Millisecond, sum.AvgDuration)
		assert.Equal(t, 50*time.Millisecond, sum.MinDuration)
		assert.Equal(t, 300*time.Millisecond, sum.MaxDuration)
	})

	t.Run("Should return a zero-value summary for an execution with no timings", func(t *testing.T) {
		s := New(100, nil, nil)
		sum := s.Summarize("e1", nil)
		assert.Equal(t, 0, sum.LogCount)
		assert.Zero(t, sum.TotalDuration)
	})
}
