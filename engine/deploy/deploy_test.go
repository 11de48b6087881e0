package deploy

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// fakeWorkflowStore is an in-memory WorkflowStore for deploy-manager tests.
type fakeWorkflowStore struct {
	mu      sync.Mutex
	records map[string]*pgstore.WorkflowRecord

	failUpsert     error
	failTransition error
}

func newFakeWorkflowStore() *fakeWorkflowStore {
	return &fakeWorkflowStore{records: make(map[string]*pgstore.WorkflowRecord)}
}

func (s *fakeWorkflowStore) Upsert(_ context.Context, cfg *workflow.Config) error {
	if s.failUpsert != nil {
		return s.failUpsert
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[cfg.ID]
	if !ok {
		rec = &pgstore.WorkflowRecord{DeploymentStatus: core.DeploymentUndeployed}
		s.records[cfg.ID] = rec
	}
	rec.Config = *cfg
	return nil
}

func (s *fakeWorkflowStore) Get(_ context.Context, id string) (*pgstore.WorkflowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, pgstore.ErrWorkflowNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeWorkflowStore) TransitionDeployment(
	_ context.Context, id, action string, from, to core.DeploymentStatus, errMsg string,
) error {
	if s.failTransition != nil {
		return s.failTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("fakeWorkflowStore: workflow %q not found", id)
	}
	if rec.DeploymentStatus != from {
		return fmt.Errorf("fakeWorkflowStore: workflow %q is not in status %q (action %q)", id, from, action)
	}
	rec.DeploymentStatus = to
	rec.DeploymentVersion++
	return nil
}

// fakeDispatcher is an in-memory dispatch.Dispatcher for one trigger family.
type fakeDispatcher struct {
	mu           sync.Mutex
	registered   map[string][]string // workflowID -> index keys
	failRegister error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{registered: make(map[string][]string)}
}

func (d *fakeDispatcher) Register(_ context.Context, workflowID, _ string, indexKeys []string) error {
	if d.failRegister != nil {
		return d.failRegister
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registered[workflowID] = indexKeys
	return nil
}

func (d *fakeDispatcher) Unregister(_ context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.registered, workflowID)
	return nil
}

// fakeCredentials resolves fixed, test-controlled provider context.
type fakeCredentials struct {
	installationID string
	workspaceID    string
	channels       map[string]string
}

func (f *fakeCredentials) GitHubInstallationID(context.Context, string) (string, error) {
	return f.installationID, nil
}

func (f *fakeCredentials) SlackWorkspace(context.Context, string) (string, error) {
	return f.workspaceID, nil
}

func (f *fakeCredentials) ResolveSlackChannel(_ context.Context, _, name string) (string, bool) {
	id, ok := f.channels[name]
	return id, ok
}

func cronWorkflow(id, expr string) *workflow.Config {
	return &workflow.Config{
		ID:   id,
		Name: "cron workflow",
		Nodes: []workflow.Node{
			{
				ID:             "trigger-1",
				Type:           workflow.NodeTrigger,
				Subtype:        "CRON",
				Configurations: map[string]any{"schedule": expr},
			},
			{ID: "action-1", Type: workflow.NodeAction},
		},
	}
}
