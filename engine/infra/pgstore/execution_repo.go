package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/orbitflow/orbitflow/engine/core"
)

// ErrExecutionNotFound is returned when an execution id has no row.
var ErrExecutionNotFound = errors.New("pgstore: execution not found")

// Execution is one run of a deployed workflow (§3, §7).
type Execution struct {
	ID              string
	WorkflowID      string
	WorkflowVersion string
	Status          core.ExecStatus
	StartTime       time.Time
	EndTime         *time.Time
	TriggerInfo     map[string]any
}

// NodeExecution is the per-node record within an Execution (§3, §7).
type NodeExecution struct {
	ExecutionID        string
	NodeID             string
	Phase               core.NodePhase
	StartTime           *time.Time
	EndTime             *time.Time
	InputParameters     map[string]any
	OutputParameters    map[string]any
	ErrorDetails        map[string]any
	PerformanceMetrics  map[string]any
}

type executionRowDB struct {
	ID              string     `db:"id"`
	WorkflowID      string     `db:"workflow_id"`
	WorkflowVersion string     `db:"workflow_version"`
	Status          string     `db:"status"`
	StartTime       time.Time  `db:"start_time"`
	EndTime         *time.Time `db:"end_time"`
	TriggerInfo     []byte     `db:"trigger_info"`
}

func (r executionRowDB) toExecution() (Execution, error) {
	info := map[string]any{}
	if len(r.TriggerInfo) > 0 {
		if err := json.Unmarshal(r.TriggerInfo, &info); err != nil {
			return Execution{}, fmt.Errorf("pgstore: decode trigger_info: %w", err)
		}
	}
	return Execution{
		ID:              r.ID,
		WorkflowID:      r.WorkflowID,
		WorkflowVersion: r.WorkflowVersion,
		Status:          core.ExecStatus(r.Status),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		TriggerInfo:     info,
	}, nil
}

// ExecutionRepo persists Execution and NodeExecution rows (A4).
type ExecutionRepo struct {
	db DB
}

func NewExecutionRepo(db DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

// Create inserts a new execution in NEW/RUNNING status.
func (r *ExecutionRepo) Create(ctx context.Context, exec *Execution) error {
	info, err := json.Marshal(exec.TriggerInfo)
	if err != nil {
		return fmt.Errorf("pgstore: encode trigger_info: %w", err)
	}
	q, args, err := squirrel.Insert("executions").
		Columns("id", "workflow_id", "workflow_version", "status", "start_time", "trigger_info").
		Values(exec.ID, exec.WorkflowID, exec.WorkflowVersion, string(exec.Status), exec.StartTime, info).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("pgstore: create execution: %w", err)
	}
	return nil
}

// UpdateStatus moves an execution to a new status, stamping end_time when
// the new status is terminal.
func (r *ExecutionRepo) UpdateStatus(ctx context.Context, id string, status core.ExecStatus, endTime *time.Time) error {
	builder := squirrel.Update("executions").Set("status", string(status))
	if endTime != nil {
		builder = builder.Set("end_time", *endTime)
	}
	q, args, err := builder.Where(squirrel.Eq{"id": id}).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("pgstore: update execution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// Get fetches an execution by id.
func (r *ExecutionRepo) Get(ctx context.Context, id string) (*Execution, error) {
	q, args, err := squirrel.Select("id", "workflow_id", "workflow_version", "status", "start_time", "end_time", "trigger_info").
		From("executions").Where(squirrel.Eq{"id": id}).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	var row executionRowDB
	if err := pgxscan.Get(ctx, r.db, &row, q, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("pgstore: get execution: %w", err)
	}
	exec, err := row.toExecution()
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// UpsertNodeExecution inserts or replaces a NodeExecution row for
// (execution_id, node_id).
func (r *ExecutionRepo) UpsertNodeExecution(ctx context.Context, ne *NodeExecution) error {
	input, err := json.Marshal(ne.InputParameters)
	if err != nil {
		return fmt.Errorf("pgstore: encode input_parameters: %w", err)
	}
	output, err := json.Marshal(ne.OutputParameters)
	if err != nil {
		return fmt.Errorf("pgstore: encode output_parameters: %w", err)
	}
	errDetails, err := json.Marshal(ne.ErrorDetails)
	if err != nil {
		return fmt.Errorf("pgstore: encode error_details: %w", err)
	}
	metrics, err := json.Marshal(ne.PerformanceMetrics)
	if err != nil {
		return fmt.Errorf("pgstore: encode performance_metrics: %w", err)
	}
	q, args, err := squirrel.Insert("node_executions").
		Columns(
			"execution_id", "node_id", "phase", "start_time", "end_time",
			"input_parameters", "output_parameters", "error_details", "performance_metrics",
		).
		Values(ne.ExecutionID, ne.NodeID, string(ne.Phase), ne.StartTime, ne.EndTime,
			input, output, errDetails, metrics).
		Suffix(`ON CONFLICT (execution_id, node_id) DO UPDATE SET
			phase = EXCLUDED.phase,
			start_time = COALESCE(node_executions.start_time, EXCLUDED.start_time),
			end_time = EXCLUDED.end_time,
			input_parameters = EXCLUDED.input_parameters,
			output_parameters = EXCLUDED.output_parameters,
			error_details = EXCLUDED.error_details,
			performance_metrics = EXCLUDED.performance_metrics`).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("pgstore: upsert node execution: %w", err)
	}
	return nil
}

// NodeExecutionsFor returns every node execution for an execution id.
func (r *ExecutionRepo) NodeExecutionsFor(ctx context.Context, executionID string) ([]NodeExecution, error) {
	q, args, err := squirrel.Select(
		"execution_id", "node_id", "phase", "start_time", "end_time",
		"input_parameters", "output_parameters", "error_details", "performance_metrics",
	).From("node_executions").Where(squirrel.Eq{"execution_id": executionID}).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	type rowDB struct {
		ExecutionID        string     `db:"execution_id"`
		NodeID             string     `db:"node_id"`
		Phase              string     `db:"phase"`
		StartTime          *time.Time `db:"start_time"`
		EndTime            *time.Time `db:"end_time"`
		InputParameters    []byte     `db:"input_parameters"`
		OutputParameters   []byte     `db:"output_parameters"`
		ErrorDetails       []byte     `db:"error_details"`
		PerformanceMetrics []byte     `db:"performance_metrics"`
	}
	var rows []rowDB
	if err := pgxscan.Select(ctx, r.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: node executions for: %w", err)
	}
	out := make([]NodeExecution, len(rows))
	for i, row := range rows {
		ne := NodeExecution{
			ExecutionID: row.ExecutionID,
			NodeID:      row.NodeID,
			Phase:       core.NodePhase(row.Phase),
			StartTime:   row.StartTime,
			EndTime:     row.EndTime,
		}
		for _, pair := range []struct {
			raw  []byte
			dest *map[string]any
		}{
			{row.InputParameters, &ne.InputParameters},
			{row.OutputParameters, &ne.OutputParameters},
			{row.ErrorDetails, &ne.ErrorDetails},
			{row.PerformanceMetrics, &ne.PerformanceMetrics},
		} {
			m := map[string]any{}
			if len(pair.raw) > 0 {
				if err := json.Unmarshal(pair.raw, &m); err != nil {
					return nil, fmt.Errorf("pgstore: decode node execution field: %w", err)
				}
			}
			*pair.dest = m
		}
		out[i] = ne
	}
	return out, nil
}
