// Package router implements the Event Router (C2): a stateless query layer
// over the Trigger Index Store that turns an inbound event into the list of
// deployed workflows that should fire.
package router

import (
	"context"

	"github.com/orbitflow/orbitflow/engine/trigindex"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// Match is one routed hit: a workflow to invoke, with the trigger_data the
// dispatcher should hand to the engine.
type Match struct {
	WorkflowID    string
	TriggerType   string
	TriggerConfig map[string]any
	TriggerData   map[string]any
}

// WebhookEventRecorder persists a best-effort audit record for inbound
// GitHub deliveries. Failure to record must never block routing.
type WebhookEventRecorder func(ctx context.Context, deliveryID, eventType, repoFullName string, payload any) error

// Router is the C2 stateless query layer.
type Router struct {
	index       trigindex.Store
	cel         *filterCache
	recordEvent WebhookEventRecorder
}

// New constructs a Router over the given TriggerIndex Store. recordEvent may
// be nil, in which case GitHub audit persistence is skipped.
func New(index trigindex.Store, recordEvent WebhookEventRecorder) *Router {
	return &Router{index: index, cel: newFilterCache(), recordEvent: recordEvent}
}

// RouteCron resolves a fired cron expression to its registered workflows.
func (r *Router) RouteCron(ctx context.Context, cronExpr, timezone, executionTime string) ([]Match, error) {
	rows, err := r.index.Query(ctx, "CRON", cronExpr)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   row.TriggerType,
			TriggerConfig: row.TriggerConfig,
			TriggerData: map[string]any{
				"cron_expression": cronExpr,
				"timezone":        timezone,
				"execution_time":  executionTime,
			},
		})
	}
	return out, nil
}

// RouteWebhook resolves an inbound path-addressed webhook, filtering by the
// row's allowed_methods.
func (r *Router) RouteWebhook(ctx context.Context, path, method string, envelope map[string]any) ([]Match, error) {
	rows, err := r.index.Query(ctx, "WEBHOOK", path)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		if !methodAllowed(row.TriggerConfig, method) {
			continue
		}
		out = append(out, Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   row.TriggerType,
			TriggerConfig: row.TriggerConfig,
			TriggerData:   envelope,
		})
	}
	return out, nil
}

func methodAllowed(cfg map[string]any, method string) bool {
	raw, ok := cfg["allowed_methods"]
	if !ok {
		return true
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return true
	}
	for _, m := range list {
		if s, ok := m.(string); ok && s == method {
			return true
		}
	}
	return false
}

// RouteGitHub resolves a GitHub delivery against every candidate trigger
// registered for repoFullName, plus any account-wide (index_key == "")
// triggers — the same query(type,key) ∪ query(type,"") pattern RouteSlack
// uses, per Open Question #5's resolution. It applies §4.2.1 detailed
// validation and always attempts a best-effort audit write via recordEvent,
// regardless of routing outcome.
func (r *Router) RouteGitHub(
	ctx context.Context,
	deliveryID, eventType, repoFullName string,
	payload map[string]any,
) ([]Match, error) {
	if r.recordEvent != nil {
		if err := r.recordEvent(ctx, deliveryID, eventType, repoFullName, payload); err != nil {
			logger.FromContext(ctx).Warn("Failed to record GitHub webhook event", "error", err, "delivery_id", deliveryID)
		}
	}

	rows, err := r.index.Query(ctx, "GITHUB", repoFullName)
	if err != nil {
		return nil, err
	}
	if repoFullName != "" {
		agnostic, err := r.index.Query(ctx, "GITHUB", "")
		if err != nil {
			return nil, err
		}
		rows = append(rows, agnostic...)
	}
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		ok, err := validateGitHub(eventType, payload, row.TriggerConfig)
		if err != nil {
			logger.FromContext(ctx).Warn("GitHub trigger validation error, failing open", "error", err, "workflow_id", row.WorkflowID)
			ok = true
		}
		if !ok {
			continue
		}
		out = append(out, Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   row.TriggerType,
			TriggerConfig: row.TriggerConfig,
			TriggerData: map[string]any{
				"event_type": eventType,
				"payload":    payload,
			},
		})
	}
	return out, nil
}

// RouteSlack resolves a Slack event, matching both workspace-scoped triggers
// and workspace-agnostic ones (index_key == "").
func (r *Router) RouteSlack(ctx context.Context, workspaceID string, event map[string]any) ([]Match, error) {
	rows, err := r.index.Query(ctx, "SLACK", workspaceID)
	if err != nil {
		return nil, err
	}
	if workspaceID != "" {
		agnostic, err := r.index.Query(ctx, "SLACK", "")
		if err != nil {
			return nil, err
		}
		rows = append(rows, agnostic...)
	}
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		if !validateSlack(event, row.TriggerConfig) {
			continue
		}
		out = append(out, Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   row.TriggerType,
			TriggerConfig: row.TriggerConfig,
			TriggerData:   event,
		})
	}
	return out, nil
}

// RouteEmail resolves an inbound email against every registered EMAIL
// trigger, evaluating sender/subject/recipient patterns per row.
func (r *Router) RouteEmail(ctx context.Context, envelope map[string]any) ([]Match, error) {
	rows, err := r.index.Query(ctx, "EMAIL", "")
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(rows))
	for _, row := range rows {
		if !validateEmail(envelope, row.TriggerConfig) {
			continue
		}
		out = append(out, Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   row.TriggerType,
			TriggerConfig: row.TriggerConfig,
			TriggerData:   envelope,
		})
	}
	return out, nil
}

func validateEmail(envelope, cfg map[string]any) bool {
	if pattern, ok := cfg["sender_filter"].(string); ok && pattern != "" {
		if !matchWildcard(pattern, stringField(envelope, "from")) {
			return false
		}
	}
	if pattern, ok := cfg["subject_filter"].(string); ok && pattern != "" {
		if !matchWildcard(pattern, stringField(envelope, "subject")) {
			return false
		}
	}
	if pattern, ok := cfg["recipient_filter"].(string); ok && pattern != "" {
		if !matchWildcard(pattern, stringField(envelope, "to")) {
			return false
		}
	}
	return true
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
