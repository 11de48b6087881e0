// Package deploy implements the Deployment Manager (C4): the
// validate -> extract -> resolve -> register transaction that turns a
// workflow document into a set of routable triggers, and its inverse.
package deploy

import (
	"context"
	"sync"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/dispatch"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
	"github.com/orbitflow/orbitflow/engine/trigindex"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// WorkflowStore is the persistence contract the deployment manager needs
// from the workflow record store; *pgstore.WorkflowRepo satisfies it.
type WorkflowStore interface {
	Upsert(ctx context.Context, cfg *workflow.Config) error
	Get(ctx context.Context, id string) (*pgstore.WorkflowRecord, error)
	TransitionDeployment(ctx context.Context, id, action string, from, to core.DeploymentStatus, errMsg string) error
}

// CredentialResolver resolves provider-owned context (OAuth tokens, channel
// ids) needed to fill in a GitHub/Slack trigger's routing parameters.
// Failures here are logged, never fatal to deployment (§4.4.2 step 3).
type CredentialResolver interface {
	// GitHubInstallationID returns the installation id to stamp onto a
	// GitHub trigger's parameters as github_app_installation_id.
	GitHubInstallationID(ctx context.Context, ownerID string) (string, error)
	// SlackWorkspace returns the Slack team id that must overwrite any
	// user-supplied workspace_id.
	SlackWorkspace(ctx context.Context, ownerID string) (string, error)
	// ResolveSlackChannel maps a channel name to its id, ok=false if it
	// cannot be resolved (the name is then passed through verbatim).
	ResolveSlackChannel(ctx context.Context, teamID, name string) (string, bool)
}

// NoopCredentialResolver resolves nothing, for deployments with no
// GitHub/Slack triggers or no credential store configured.
type NoopCredentialResolver struct{}

func (NoopCredentialResolver) GitHubInstallationID(context.Context, string) (string, error) {
	return "", nil
}
func (NoopCredentialResolver) SlackWorkspace(context.Context, string) (string, error) { return "", nil }
func (NoopCredentialResolver) ResolveSlackChannel(context.Context, string, string) (string, bool) {
	return "", false
}

// DeploymentResult is the outcome of a deploy/undeploy/update operation.
type DeploymentResult struct {
	WorkflowID string                `json:"workflow_id"`
	Status     core.DeploymentStatus `json:"status"`
	Version    int                   `json:"version"`
}

// Deps bundles the Deployment Manager's collaborators: the per-family
// dispatcher set (keyed by trigger type: CRON/WEBHOOK/GITHUB/SLACK/EMAIL/
// MANUAL), the trigger index, the workflow record store, and credential
// resolution.
type Deps struct {
	Workflows   WorkflowStore
	Index       trigindex.Store
	Dispatchers map[string]dispatch.Dispatcher
	Credentials CredentialResolver
}

// lockRegistry hands out one *sync.Mutex per workflow id, so the
// validate->extract->resolve->register->persist transaction never overlaps
// with another deploy/undeploy of the same workflow.
type lockRegistry struct {
	mu    sync.Mutex
	perWF map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{perWF: make(map[string]*sync.Mutex)}
}

func (l *lockRegistry) lockFor(workflowID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.perWF[workflowID]
	if !ok {
		m = &sync.Mutex{}
		l.perWF[workflowID] = m
	}
	return m
}

// Manager owns the shared lock registry across every deploy-family use case
// constructed against the same Deps.
type Manager struct {
	deps  Deps
	locks *lockRegistry
}

// NewManager builds a Manager over deps.
func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, locks: newLockRegistry()}
}

// Deploy runs the deploy algorithm for spec.
func (m *Manager) Deploy(ctx context.Context, spec *workflow.Config) (*DeploymentResult, error) {
	lock := m.locks.lockFor(spec.ID)
	lock.Lock()
	defer lock.Unlock()
	return NewDeployWorkflow(m.deps).execute(ctx, spec)
}

// Undeploy runs the undeploy algorithm for workflowID.
func (m *Manager) Undeploy(ctx context.Context, workflowID string) (*DeploymentResult, error) {
	lock := m.locks.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()
	return NewUndeployWorkflow(m.deps).execute(ctx, workflowID)
}

// Update runs undeploy-then-deploy on the same workflow id (§4.4.4).
func (m *Manager) Update(ctx context.Context, spec *workflow.Config) (*DeploymentResult, error) {
	lock := m.locks.lockFor(spec.ID)
	lock.Lock()
	defer lock.Unlock()
	if _, err := NewUndeployWorkflow(m.deps).execute(ctx, spec.ID); err != nil {
		return nil, err
	}
	return NewDeployWorkflow(m.deps).execute(ctx, spec)
}

// Pause flips every TriggerIndex row for workflowID to paused, without
// touching the workflow's overall deployment_status (§4.4.1).
func (m *Manager) Pause(ctx context.Context, workflowID string) error {
	lock := m.locks.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()
	return m.deps.Index.UpdateStatus(ctx, workflowID, core.TriggerRowPaused)
}

// Resume flips every TriggerIndex row for workflowID back to active.
func (m *Manager) Resume(ctx context.Context, workflowID string) error {
	lock := m.locks.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()
	return m.deps.Index.UpdateStatus(ctx, workflowID, core.TriggerRowActive)
}
