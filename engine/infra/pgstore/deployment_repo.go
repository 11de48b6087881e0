package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// DeploymentHistoryEntry is one audit row for a workflow's deployment
// lifecycle transitions (§4.4, §6).
type DeploymentHistoryEntry struct {
	WorkflowID   string
	Action       string
	FromStatus   string
	ToStatus     string
	Version      int
	ErrorMessage string
	CreatedAt    time.Time
}

type deploymentHistoryRowDB struct {
	WorkflowID   string    `db:"workflow_id"`
	Action       string    `db:"action"`
	FromStatus   string    `db:"from_status"`
	ToStatus     string    `db:"to_status"`
	Version      int       `db:"version"`
	ErrorMessage *string   `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r deploymentHistoryRowDB) toEntry() DeploymentHistoryEntry {
	e := DeploymentHistoryEntry{
		WorkflowID: r.WorkflowID,
		Action:     r.Action,
		FromStatus: r.FromStatus,
		ToStatus:   r.ToStatus,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
	}
	if r.ErrorMessage != nil {
		e.ErrorMessage = *r.ErrorMessage
	}
	return e
}

// DeploymentRepo reads the deployment_history audit trail. Writes happen
// transactionally inside WorkflowRepo.TransitionDeployment, which is the
// only code path allowed to move a workflow between deployment statuses.
type DeploymentRepo struct {
	db DB
}

func NewDeploymentRepo(db DB) *DeploymentRepo {
	return &DeploymentRepo{db: db}
}

// History returns a workflow's deployment transitions, newest first.
func (r *DeploymentRepo) History(ctx context.Context, workflowID string, limit int) ([]DeploymentHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q, args, err := squirrel.Select("workflow_id", "action", "from_status", "to_status", "version", "error_message", "created_at").
		From("deployment_history").
		Where(squirrel.Eq{"workflow_id": workflowID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}
	var rows []deploymentHistoryRowDB
	if err := pgxscan.Select(ctx, r.db, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("pgstore: deployment history: %w", err)
	}
	out := make([]DeploymentHistoryEntry, len(rows))
	for i, row := range rows {
		out[i] = row.toEntry()
	}
	return out, nil
}

// RecordGitHubWebhookEvent persists an inbound GitHub delivery for audit and
// replay-detection purposes (§4.2.1). Best-effort: callers log and continue
// on error rather than failing the webhook response.
func RecordGitHubWebhookEvent(
	ctx context.Context,
	db DB,
	deliveryID, eventType, repoFullName string,
	payload any,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pgstore: encode webhook payload: %w", err)
	}
	q, args, err := squirrel.Insert("github_webhook_events").
		Columns("delivery_id", "event_type", "repo_full_name", "payload").
		Values(deliveryID, eventType, repoFullName, body).
		PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, q, args...); err != nil {
		return fmt.Errorf("pgstore: record webhook event: %w", err)
	}
	return nil
}
