package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/trigindex"
)

// rowDB mirrors trigindex.Row with a jsonb-scannable TriggerConfig.
type rowDB struct {
	WorkflowID    string `db:"workflow_id"`
	TriggerType   string `db:"trigger_type"`
	IndexKey      string `db:"index_key"`
	TriggerConfig []byte `db:"trigger_config"`
	Status        string `db:"deployment_status"`
}

func (r rowDB) toRow() (trigindex.Row, error) {
	cfg := map[string]any{}
	if len(r.TriggerConfig) > 0 {
		if err := json.Unmarshal(r.TriggerConfig, &cfg); err != nil {
			return trigindex.Row{}, fmt.Errorf("pgstore: decode trigger_config: %w", err)
		}
	}
	return trigindex.Row{
		WorkflowID:    r.WorkflowID,
		TriggerType:   r.TriggerType,
		IndexKey:      r.IndexKey,
		TriggerConfig: cfg,
		Status:        core.TriggerRowStatus(r.Status),
	}, nil
}

// TrigIndexRepo is the Postgres-backed implementation of trigindex.Store.
type TrigIndexRepo struct {
	db DB
}

func NewTrigIndexRepo(db DB) *TrigIndexRepo {
	return &TrigIndexRepo{db: db}
}

var _ trigindex.Store = (*TrigIndexRepo)(nil)

// Register replaces every row for workflowID inside a single transaction:
// delete-then-bulk-insert, so a failed insert leaves prior rows untouched.
func (r *TrigIndexRepo) Register(ctx context.Context, workflowID string, specs []trigindex.Row) error {
	if workflowID == "" {
		return fmt.Errorf("pgstore: workflow_id is required")
	}
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		del, args, err := squirrel.Delete("trigger_index").
			Where(squirrel.Eq{"workflow_id": workflowID}).
			PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, del, args...); err != nil {
			return fmt.Errorf("pgstore: clearing prior rows: %w", err)
		}
		for _, spec := range specs {
			cfg, err := json.Marshal(spec.TriggerConfig)
			if err != nil {
				return fmt.Errorf("pgstore: encode trigger_config: %w", err)
			}
			status := spec.Status
			if status == "" {
				status = core.TriggerRowActive
			}
			ins, iargs, err := squirrel.Insert("trigger_index").
				Columns("workflow_id", "trigger_type", "index_key", "trigger_config", "deployment_status").
				Values(workflowID, spec.TriggerType, spec.IndexKey, cfg, string(status)).
				PlaceholderFormat(squirrel.Dollar).ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, ins, iargs...); err != nil {
				return fmt.Errorf("pgstore: inserting row: %w", err)
			}
		}
		return nil
	})
}

func (r *TrigIndexRepo) Unregister(ctx context.Context, workflowID string) error {
	q, args, err := squirrel.Delete("trigger_index").
		Where(squirrel.Eq{"workflow_id": workflowID}).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("pgstore: unregister: %w", err)
	}
	return nil
}

func (r *TrigIndexRepo) UpdateStatus(ctx context.Context, workflowID string, status core.TriggerRowStatus) error {
	q, args, err := squirrel.Update("trigger_index").
		Set("deployment_status", string(status)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"workflow_id": workflowID}).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("pgstore: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pgstore: workflow %q not registered", workflowID)
	}
	return nil
}

func (r *TrigIndexRepo) Query(ctx context.Context, triggerType, indexKey string) ([]trigindex.Row, error) {
	q, args, err := squirrel.Select("workflow_id", "trigger_type", "index_key", "trigger_config", "deployment_status").
		From("trigger_index").
		Where(squirrel.Eq{
			"trigger_type":      triggerType,
			"index_key":         indexKey,
			"deployment_status": string(core.TriggerRowActive),
		}).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	var dbRows []rowDB
	if err := pgxscan.Select(ctx, r.db, &dbRows, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: query: %w", err)
	}
	return toRows(dbRows)
}

func (r *TrigIndexRepo) RowsFor(ctx context.Context, workflowID string) ([]trigindex.Row, error) {
	q, args, err := squirrel.Select("workflow_id", "trigger_type", "index_key", "trigger_config", "deployment_status").
		From("trigger_index").
		Where(squirrel.Eq{"workflow_id": workflowID}).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	var dbRows []rowDB
	if err := pgxscan.Select(ctx, r.db, &dbRows, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: rows for workflow: %w", err)
	}
	return toRows(dbRows)
}

func (r *TrigIndexRepo) Stats(ctx context.Context) (trigindex.Stats, error) {
	stats := trigindex.Stats{CountsByType: map[string]int{}, CountsByStatus: map[string]int{}}

	type countRow struct {
		TriggerType string `db:"trigger_type"`
		Status      string `db:"deployment_status"`
		N           int    `db:"n"`
	}
	q, _, err := squirrel.Select("trigger_type", "deployment_status", "count(*) as n").
		From("trigger_index").
		GroupBy("trigger_type", "deployment_status").
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return stats, err
	}
	var counts []countRow
	if err := pgxscan.Select(ctx, r.db, &counts, q); err != nil {
		return stats, fmt.Errorf("pgstore: stats counts: %w", err)
	}
	for _, c := range counts {
		stats.CountsByType[c.TriggerType] += c.N
		stats.CountsByStatus[c.Status] += c.N
	}

	repos, err := r.distinctIndexKeys(ctx, "GITHUB")
	if err != nil {
		return stats, err
	}
	stats.Repositories = repos

	paths, err := r.distinctIndexKeys(ctx, "WEBHOOK")
	if err != nil {
		return stats, err
	}
	stats.WebhookPaths = paths

	return stats, nil
}

func (r *TrigIndexRepo) distinctIndexKeys(ctx context.Context, triggerType string) ([]string, error) {
	q, args, err := squirrel.Select("DISTINCT index_key").
		From("trigger_index").
		Where(squirrel.Eq{"trigger_type": triggerType}).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := pgxscan.Select(ctx, r.db, &keys, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: distinct index keys: %w", err)
	}
	return keys, nil
}

func toRows(dbRows []rowDB) ([]trigindex.Row, error) {
	out := make([]trigindex.Row, 0, len(dbRows))
	for _, d := range dbRows {
		row, err := d.toRow()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
