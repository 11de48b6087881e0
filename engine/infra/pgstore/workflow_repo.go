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
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// ErrWorkflowNotFound is returned when a workflow id has no row.
var ErrWorkflowNotFound = errors.New("pgstore: workflow not found")

// WorkflowRecord is a deployed-or-draft workflow row (§3.1).
type WorkflowRecord struct {
	Config            workflow.Config
	DeploymentStatus  core.DeploymentStatus
	DeploymentVersion int
	DeployedAt        *time.Time
	UndeployedAt      *time.Time
}

type workflowRowDB struct {
	ID                string     `db:"id"`
	Version           string     `db:"version"`
	Name              string     `db:"name"`
	Spec              []byte     `db:"spec"`
	Settings          []byte     `db:"settings"`
	Metadata          []byte     `db:"metadata"`
	DeploymentStatus  string     `db:"deployment_status"`
	DeploymentVersion int        `db:"deployment_version"`
	DeployedAt        *time.Time `db:"deployed_at"`
	UndeployedAt      *time.Time `db:"undeployed_at"`
}

func (r workflowRowDB) toRecord() (WorkflowRecord, error) {
	cfg := workflow.Config{ID: r.ID, Version: r.Version, Name: r.Name}
	if len(r.Spec) > 0 {
		if err := json.Unmarshal(r.Spec, &cfg); err != nil {
			return WorkflowRecord{}, fmt.Errorf("pgstore: decode spec: %w", err)
		}
	}
	if len(r.Settings) > 0 {
		if err := json.Unmarshal(r.Settings, &cfg.Settings); err != nil {
			return WorkflowRecord{}, fmt.Errorf("pgstore: decode settings: %w", err)
		}
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &cfg.Metadata); err != nil {
			return WorkflowRecord{}, fmt.Errorf("pgstore: decode metadata: %w", err)
		}
	}
	return WorkflowRecord{
		Config:            cfg,
		DeploymentStatus:  core.DeploymentStatus(r.DeploymentStatus),
		DeploymentVersion: r.DeploymentVersion,
		DeployedAt:        r.DeployedAt,
		UndeployedAt:      r.UndeployedAt,
	}, nil
}

// WorkflowRepo persists workflow.Config documents and their deployment state.
type WorkflowRepo struct {
	db DB
}

func NewWorkflowRepo(db DB) *WorkflowRepo {
	return &WorkflowRepo{db: db}
}

// Upsert inserts or replaces the workflow document, leaving deployment_status
// untouched on conflict (deployment is a separate lifecycle, driven by the
// deployment manager, not by document edits).
func (r *WorkflowRepo) Upsert(ctx context.Context, cfg *workflow.Config) error {
	spec, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("pgstore: encode spec: %w", err)
	}
	settings, err := json.Marshal(cfg.Settings)
	if err != nil {
		return fmt.Errorf("pgstore: encode settings: %w", err)
	}
	metadata, err := json.Marshal(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("pgstore: encode metadata: %w", err)
	}
	q, args, err := squirrel.Insert("workflows").
		Columns("id", "version", "name", "spec", "settings", "metadata", "updated_at").
		Values(cfg.ID, cfg.Version, cfg.Name, spec, settings, metadata, squirrel.Expr("now()")).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			name = EXCLUDED.name,
			spec = EXCLUDED.spec,
			settings = EXCLUDED.settings,
			metadata = EXCLUDED.metadata,
			updated_at = now()`).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("pgstore: upsert workflow: %w", err)
	}
	return nil
}

// Get fetches a workflow by id.
func (r *WorkflowRepo) Get(ctx context.Context, id string) (*WorkflowRecord, error) {
	q, args, err := squirrel.Select(
		"id", "version", "name", "spec", "settings", "metadata",
		"deployment_status", "deployment_version", "deployed_at", "undeployed_at",
	).From("workflows").Where(squirrel.Eq{"id": id}).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	var row workflowRowDB
	if err := pgxscan.Get(ctx, r.db, &row, q, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("pgstore: get workflow: %w", err)
	}
	rec, err := row.toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every workflow row, most recently updated first, optionally
// narrowed to a single deployment status (list_deployments, §6).
func (r *WorkflowRepo) List(ctx context.Context, status core.DeploymentStatus) ([]WorkflowRecord, error) {
	sel := squirrel.Select(
		"id", "version", "name", "spec", "settings", "metadata",
		"deployment_status", "deployment_version", "deployed_at", "undeployed_at",
	).From("workflows").OrderBy("updated_at DESC").PlaceholderFormat(squirrel.Dollar)
	if status != "" {
		sel = sel.Where(squirrel.Eq{"deployment_status": string(status)})
	}
	q, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []workflowRowDB
	if err := pgxscan.Select(ctx, r.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: list workflows: %w", err)
	}
	recs := make([]WorkflowRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// TransitionDeployment atomically moves a workflow from one deployment status
// to another, recording a DeploymentHistory row, inside one transaction.
func (r *WorkflowRepo) TransitionDeployment(
	ctx context.Context,
	id string,
	action string,
	from, to core.DeploymentStatus,
	errMsg string,
) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		uq, uargs, err := squirrel.Update("workflows").
			Set("deployment_status", string(to)).
			Set("deployment_version", squirrel.Expr("deployment_version + 1")).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"id": id, "deployment_status": string(from)}).
			PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, uq, uargs...)
		if err != nil {
			return fmt.Errorf("pgstore: transition workflow: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("pgstore: workflow %q is not in status %q", id, from)
		}

		var version int
		if err := pgxscan.Get(ctx, tx, &version,
			`SELECT deployment_version FROM workflows WHERE id = $1`, id); err != nil {
			return fmt.Errorf("pgstore: read version: %w", err)
		}

		hq, hargs, err := squirrel.Insert("deployment_history").
			Columns("workflow_id", "action", "from_status", "to_status", "version", "error_message").
			Values(id, action, string(from), string(to), version, nullIfEmpty(errMsg)).
			PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, hq, hargs...); err != nil {
			return fmt.Errorf("pgstore: insert deployment history: %w", err)
		}
		return nil
	})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
