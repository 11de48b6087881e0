// Package trigindex implements the Trigger Index Store (C1): a persistent
// reverse lookup from (trigger_type, index_key) to the set of deployed
// workflows that should be considered for routing.
package trigindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitflow/orbitflow/engine/core"
)

// Row is one TriggerIndex entry (§3).
type Row struct {
	WorkflowID    string
	TriggerType   string
	IndexKey      string
	TriggerConfig map[string]any
	Status        core.TriggerRowStatus
}

// Stats summarizes the index contents for the Deployment API's
// get_index_statistics operation (§6).
type Stats struct {
	CountsByType   map[string]int `json:"counts_by_type"`
	CountsByStatus map[string]int `json:"counts_by_status"`
	Repositories   []string       `json:"repositories"`
	WebhookPaths   []string       `json:"webhook_paths"`
}

// Store is the C1 contract. Implementations must make register atomic per
// workflow_id: either every row for that workflow lands, or none do.
type Store interface {
	// Register upserts one row per spec, replacing any prior rows for the
	// workflow. Atomic: on error no row for workflowID is changed.
	Register(ctx context.Context, workflowID string, specs []Row) error
	// Unregister deletes every row for the workflow.
	Unregister(ctx context.Context, workflowID string) error
	// UpdateStatus bulk-changes deployment_status for every row of the workflow.
	UpdateStatus(ctx context.Context, workflowID string, status core.TriggerRowStatus) error
	// Query returns active rows for (triggerType, indexKey).
	Query(ctx context.Context, triggerType, indexKey string) ([]Row, error)
	// RowsFor returns every row currently registered for a workflow, any status.
	RowsFor(ctx context.Context, workflowID string) ([]Row, error)
	Stats(ctx context.Context) (Stats, error)
}

// memStore is an in-memory Store used by the single-process deployment mode
// and by every C1/C2/C4 unit test in this module.
type memStore struct {
	mu   sync.RWMutex
	rows map[string][]Row // workflowID -> rows
}

// NewMemStore constructs an in-memory Store.
func NewMemStore() Store {
	return &memStore{rows: make(map[string][]Row)}
}

func (s *memStore) Register(_ context.Context, workflowID string, specs []Row) error {
	if workflowID == "" {
		return fmt.Errorf("trigindex: workflow_id is required")
	}
	rows := make([]Row, len(specs))
	for i, r := range specs {
		r.WorkflowID = workflowID
		if r.Status == "" {
			r.Status = core.TriggerRowActive
		}
		rows[i] = r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[workflowID] = rows
	return nil
}

func (s *memStore) Unregister(_ context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, workflowID)
	return nil
}

func (s *memStore) UpdateStatus(_ context.Context, workflowID string, status core.TriggerRowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.rows[workflowID]
	if !ok {
		return fmt.Errorf("trigindex: workflow %q not registered", workflowID)
	}
	for i := range rows {
		rows[i].Status = status
	}
	return nil
}

func (s *memStore) Query(_ context.Context, triggerType, indexKey string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Row
	for _, rows := range s.rows {
		for _, r := range rows {
			if r.TriggerType == triggerType && r.IndexKey == indexKey && r.Status == core.TriggerRowActive {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *memStore) RowsFor(_ context.Context, workflowID string) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows[workflowID]
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *memStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{CountsByType: map[string]int{}, CountsByStatus: map[string]int{}}
	repos := map[string]struct{}{}
	paths := map[string]struct{}{}
	for _, rows := range s.rows {
		for _, r := range rows {
			stats.CountsByType[r.TriggerType]++
			stats.CountsByStatus[string(r.Status)]++
			switch r.TriggerType {
			case "GITHUB":
				if r.IndexKey != "" {
					repos[r.IndexKey] = struct{}{}
				}
			case "WEBHOOK":
				if r.IndexKey != "" {
					paths[r.IndexKey] = struct{}{}
				}
			}
		}
	}
	for k := range repos {
		stats.Repositories = append(stats.Repositories, k)
	}
	for k := range paths {
		stats.WebhookPaths = append(stats.WebhookPaths, k)
	}
	return stats, nil
}
