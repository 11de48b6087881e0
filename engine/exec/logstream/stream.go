package logstream

import (
	"context"
	"sync"
	"time"

	"github.com/orbitflow/orbitflow/pkg/logger"
)

// DefaultCapacity bounds the in-memory ring when Stream is built with a
// non-positive capacity.
const DefaultCapacity = 10000

// DefaultBatchSize is how many pending entries accumulate before an
// automatic flush to the persistent sink.
const DefaultBatchSize = 50

// Stream is the Execution Logger (C8): a fixed-capacity in-memory buffer of
// entries, filtered queries, execution summaries, and an optional batched
// persistent sink. All state lives behind a single mutex: appends and
// queries never interleave, so a query always sees a consistent snapshot
// (§5 "single lock per append; queries take a consistent snapshot").
type Stream struct {
	mu        sync.Mutex
	capacity  int
	entries   []Entry // oldest first, bounded to capacity
	pending   []Entry // accumulated since the last sink flush
	batchSize int
	sink      Sink
	metrics   *Metrics
}

// New builds a Stream with the given ring capacity (DefaultCapacity if <=
// 0). sink and metrics are both optional; a nil sink disables persistence,
// a nil metrics disables instrument recording.
func New(capacity int, sink Sink, metrics *Metrics) *Stream {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stream{
		capacity:  capacity,
		entries:   make([]Entry, 0, capacity),
		batchSize: DefaultBatchSize,
		sink:      sink,
		metrics:   metrics,
	}
}

// Append records one entry, dropping the oldest if the ring is full, and
// queues it for the next sink flush.
func (s *Stream) Append(ctx context.Context, e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.mu.Lock()
	if len(s.entries) >= s.capacity {
		s.entries = append(s.entries[1:], e)
	} else {
		s.entries = append(s.entries, e)
	}
	s.pending = append(s.pending, e)
	flush := s.sink != nil && len(s.pending) >= s.batchSize
	var batch []Entry
	if flush {
		batch = s.pending
		s.pending = nil
	}
	s.mu.Unlock()

	if flush {
		s.writeBatch(ctx, batch)
	}
}

// Flush forces any pending entries to the sink immediately; a no-op
// without a configured sink or unflushed entries.
func (s *Stream) Flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) > 0 {
		s.writeBatch(ctx, batch)
	}
}

func (s *Stream) writeBatch(ctx context.Context, batch []Entry) {
	if s.sink == nil || len(batch) == 0 {
		return
	}
	if err := s.sink.Write(ctx, batch); err != nil {
		logger.FromContext(ctx).Error("logstream: sink write failed", "error", err, "entries", len(batch))
	}
}

// Query returns entries matching filter from a consistent snapshot of the
// ring, oldest first, bounded by Limit/Offset (0 limit means unbounded).
func (s *Stream) Query(filter Filter) []Entry {
	s.mu.Lock()
	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	matched := make([]Entry, 0, len(snapshot))
	for _, e := range snapshot {
		if filter.ExecutionID != "" && e.ExecutionID != filter.ExecutionID {
			continue
		}
		if filter.NodeID != "" && e.NodeID != filter.NodeID {
			continue
		}
		if filter.Level != "" && e.Level != filter.Level {
			continue
		}
		matched = append(matched, e)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched
}

// nodeTiming is what Summary needs per terminal node: its phase and how
// long it ran.
type NodeTiming struct {
	Phase    string
	Duration time.Duration
}

// Summarize builds an execution summary from the ring's entries for
// executionID plus the caller's terminal node timings (the ring records
// messages, not structured durations, so callers pass the authoritative
// NodeExecution timings alongside it).
func (s *Stream) Summarize(executionID string, timings []NodeTiming) Summary {
	sum := Summary{ExecutionID: executionID, NodeCountByPhase: make(map[string]int)}
	sum.LogCount = len(s.Query(Filter{ExecutionID: executionID}))

	if len(timings) == 0 {
		return sum
	}
	var total time.Duration
	min := timings[0].Duration
	max := timings[0].Duration
	for _, t := range timings {
		sum.NodeCountByPhase[t.Phase]++
		total += t.Duration
		if t.Duration < min {
			min = t.Duration
		}
		if t.Duration > max {
			max = t.Duration
		}
	}
	sum.TotalDuration = total
	sum.AvgDuration = total / time.Duration(len(timings))
	sum.MinDuration = min
	sum.MaxDuration = max
	return sum
}
