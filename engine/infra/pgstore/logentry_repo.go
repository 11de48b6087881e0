package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// LogEntry is one structured log line produced during an execution (§3, C8).
type LogEntry struct {
	ID          int64
	ExecutionID string
	NodeID      string
	Level       string
	Message     string
	Fields      map[string]any
	CreatedAt   time.Time
}

// LogFilter scopes a LogEntry query (§6 get_execution_logs).
type LogFilter struct {
	ExecutionID string
	NodeID      string
	Level       string
	Limit       int
	Offset      int
}

// LogEntryRepo persists LogEntry rows (A4), the C8 execution logger's
// optional durable sink.
type LogEntryRepo struct {
	db DB
}

func NewLogEntryRepo(db DB) *LogEntryRepo {
	return &LogEntryRepo{db: db}
}

// InsertBatch appends entries in one round trip. Order within a batch is
// preserved by insertion order; created_at defaults to now() when unset.
func (r *LogEntryRepo) InsertBatch(ctx context.Context, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	builder := squirrel.Insert("log_entries").
		Columns("execution_id", "node_id", "level", "message", "fields")
	for _, e := range entries {
		fields, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("pgstore: encode log entry fields: %w", err)
		}
		builder = builder.Values(e.ExecutionID, e.NodeID, e.Level, e.Message, fields)
	}
	q, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("pgstore: insert log entries: %w", err)
	}
	return nil
}

// Query returns entries matching filter, most recent last, bounded by
// Limit/Offset (0 limit means unbounded).
func (r *LogEntryRepo) Query(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	builder := squirrel.Select("id", "execution_id", "node_id", "level", "message", "fields", "created_at").
		From("log_entries").
		Where(squirrel.Eq{"execution_id": filter.ExecutionID}).
		OrderBy("created_at ASC", "id ASC")
	if filter.NodeID != "" {
		builder = builder.Where(squirrel.Eq{"node_id": filter.NodeID})
	}
	if filter.Level != "" {
		builder = builder.Where(squirrel.Eq{"level": filter.Level})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	q, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	type rowDB struct {
		ID          int64     `db:"id"`
		ExecutionID string    `db:"execution_id"`
		NodeID      *string   `db:"node_id"`
		Level       string    `db:"level"`
		Message     string    `db:"message"`
		Fields      []byte    `db:"fields"`
		CreatedAt   time.Time `db:"created_at"`
	}
	var rows []rowDB
	if err := pgxscan.Select(ctx, r.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: query log entries: %w", err)
	}
	out := make([]LogEntry, len(rows))
	for i, row := range rows {
		fields := map[string]any{}
		if len(row.Fields) > 0 {
			if err := json.Unmarshal(row.Fields, &fields); err != nil {
				return nil, fmt.Errorf("pgstore: decode log entry fields: %w", err)
			}
		}
		nodeID := ""
		if row.NodeID != nil {
			nodeID = *row.NodeID
		}
		out[i] = LogEntry{
			ID: row.ID, ExecutionID: row.ExecutionID, NodeID: nodeID,
			Level: row.Level, Message: row.Message, Fields: fields, CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

// CountByExecution returns the total entry count for an execution,
// ignoring filter paging (§6 get_execution_logs "total").
func (r *LogEntryRepo) CountByExecution(ctx context.Context, executionID string) (int, error) {
	q, args, err := squirrel.Select("count(*)").From("log_entries").
		Where(squirrel.Eq{"execution_id": executionID}).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRow(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgstore: count log entries: %w", err)
	}
	return count, nil
}
