package config

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultDebounce = 100 * time.Millisecond

// Manager owns the live Config: it drives Service.Load, stores the
// result atomically behind a mutex, notifies OnChange callbacks when the
// value actually changes, and re-runs Load whenever a watched source
// reports a file change (debounced, since editors tend to fire several
// write events per save).
type Manager struct {
	Service Service

	mu        sync.RWMutex
	debounce  time.Duration
	cfg       *Config
	sources   []Source
	callbacks []func(*Config)

	debounceMu sync.Mutex
	timer      *time.Timer
}

func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{Service: service, debounce: defaultDebounce}
}

func (m *Manager) SetDebounce(d time.Duration) {
	m.mu.Lock()
	m.debounce = d
	m.mu.Unlock()
}

func (m *Manager) currentDebounce() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.debounce
}

// Load fetches a fresh Config from Service, stores it, fires OnChange
// callbacks if it differs from the previous value, and (re)starts
// watching every source that supports it.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	cfg, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sources = sources
	m.mu.Unlock()
	m.apply(cfg)
	m.startWatch(ctx, sources)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) OnChange(cb func(*Config)) {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, cb)
	m.mu.Unlock()
}

// Reload re-runs Load against the last-used sources, re-validating
// explicitly so a Service whose Load skips validation (test doubles,
// mainly) still gets a rejected config caught here.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.RLock()
	sources := append([]Source{}, m.sources...)
	m.mu.RUnlock()
	cfg, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return err
	}
	if err := m.Service.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	m.apply(cfg)
	return nil
}

func (m *Manager) apply(cfg *Config) {
	m.mu.Lock()
	changed := !configEqual(m.cfg, cfg)
	m.cfg = cfg
	cbs := make([]func(*Config), len(m.callbacks))
	copy(cbs, m.callbacks)
	m.mu.Unlock()
	if changed {
		for _, cb := range cbs {
			cb(cfg)
		}
	}
}

func (m *Manager) startWatch(ctx context.Context, sources []Source) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		_ = src.Watch(ctx, m.debouncedReload(ctx))
	}
}

// debouncedReload coalesces bursts of file-change notifications into a
// single Reload, fired m.debounce after the last event.
func (m *Manager) debouncedReload(ctx context.Context) func() {
	return func() {
		m.debounceMu.Lock()
		defer m.debounceMu.Unlock()
		if m.timer != nil {
			m.timer.Stop()
		}
		m.timer = time.AfterFunc(m.currentDebounce(), func() {
			_ = m.Reload(ctx)
		})
	}
}

// Close releases every source this Manager loaded from (closing file
// watchers, etc). Safe to call on a Manager that never loaded anything.
func (m *Manager) Close(_ context.Context) error {
	m.debounceMu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.debounceMu.Unlock()

	m.mu.Lock()
	sources := m.sources
	m.sources = nil
	m.mu.Unlock()

	var firstErr error
	for _, src := range sources {
		if src == nil {
			continue
		}
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
