package logstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
)

// Sink durably persists a batch of entries. Write is called with everything
// accumulated since the last flush; implementations should treat the batch
// as append-only and side-effect free on error (the caller retains entries
// that fail to write in the in-memory buffer only, never re-queues them).
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// PostgresSink batches entries into log_entries rows (§4.8 "persistent
// sink writes LogEntry rows to Postgres in batches").
type PostgresSink struct {
	repo *pgstore.LogEntryRepo
}

func NewPostgresSink(repo *pgstore.LogEntryRepo) *PostgresSink {
	return &PostgresSink{repo: repo}
}

func (s *PostgresSink) Write(ctx context.Context, entries []Entry) error {
	rows := make([]pgstore.LogEntry, len(entries))
	for i, e := range entries {
		rows[i] = pgstore.LogEntry{
			ExecutionID: e.ExecutionID,
			NodeID:      e.NodeID,
			Level:       e.Level,
			Message:     e.Message,
			Fields:      e.Fields,
			CreatedAt:   e.Time,
		}
	}
	return s.repo.InsertBatch(ctx, rows)
}

// NATSSink publishes each entry on a JetStream subject of the form
// logs.<workflow_id>.<execution_id> (§4.8), for external tailing
// consumers. Entries are JSON-encoded rather than protobuf-typed: there
// is no separate event-bus envelope to fit here, just the log entry
// itself.
type NATSSink struct {
	js jetstream.JetStream
}

func NewNATSSink(js jetstream.JetStream) *NATSSink {
	return &NATSSink{js: js}
}

func (s *NATSSink) Write(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("logstream: encode entry for publish: %w", err)
		}
		subject := fmt.Sprintf("logs.%s.%s", e.WorkflowID, e.ExecutionID)
		if _, err := s.js.Publish(ctx, subject, data); err != nil {
			return fmt.Errorf("logstream: publish log entry: %w", err)
		}
	}
	return nil
}

// MultiSink fans a batch out to every sink in order, returning the first
// error but still attempting every sink.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, entries []Entry) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Write(ctx, entries); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
