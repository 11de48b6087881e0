// Package registry holds the process-wide slug -> webhook-trigger registry
// consumed by the HTTP ingress layer, kept separate from engine/webhook so
// that package can stay free of a registration-time dependency cycle.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/orbitflow/orbitflow/engine/webhook"
)

// ErrDuplicateSlug is returned by Registry.Add when slug is already taken.
var ErrDuplicateSlug = errors.New("webhook: duplicate slug")

// Entry binds a webhook trigger's declarative config to the workflow that
// owns it.
type Entry struct {
	WorkflowID string
	Webhook    *webhook.Config
}

// Registry is a concurrency-safe slug -> Entry map.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Add registers entry under slug.
func (r *Registry) Add(slug string, entry Entry) error {
	norm := normalizeSlug(slug)
	if norm == "" {
		return fmt.Errorf("webhook: slug must not be empty")
	}
	if entry.Webhook != nil && entry.Webhook.Slug != "" && normalizeSlug(entry.Webhook.Slug) != norm {
		return fmt.Errorf("webhook: slug mismatch: registered as %q but config declares %q", slug, entry.Webhook.Slug)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[norm]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSlug, norm)
	}
	r.entries[norm] = entry
	return nil
}

// Get resolves slug (normalized) to its Entry.
func (r *Registry) Get(slug string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[normalizeSlug(slug)]
	return entry, ok
}
