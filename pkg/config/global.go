package config

import (
	"context"
	"fmt"
	"sync"
)

var (
	globalMu      sync.RWMutex
	globalManager *Manager
)

// Initialize sets up the process-wide Config exactly once; later calls
// are no-ops (nil error) so a package that wants to guarantee config is
// ready doesn't need to coordinate with whichever caller got there first.
// service may be nil to use the default Service implementation.
func Initialize(ctx context.Context, service Service, sources ...Source) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager != nil {
		return nil
	}
	m := NewManager(service)
	if _, err := m.Load(ctx, sources...); err != nil {
		return fmt.Errorf("failed to initialize global config: %w", err)
	}
	globalManager = m
	return nil
}

func currentManager() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// Get returns the process-wide Config. It panics if Initialize has not
// run: every caller of Get is assumed to execute after startup has
// finished wiring configuration.
func Get() *Config {
	m := currentManager()
	if m == nil {
		panic("config: global configuration not initialized")
	}
	return m.Get()
}

func OnChange(cb func(*Config)) {
	m := currentManager()
	if m == nil {
		panic("config: global configuration not initialized")
	}
	m.OnChange(cb)
}

func Reload(ctx context.Context) error {
	m := currentManager()
	if m == nil {
		panic("config: global configuration not initialized")
	}
	return m.Reload(ctx)
}

// Close tears down the process-wide Config; a subsequent Initialize call
// (after resetForTest in tests, or simply never having closed in
// production) is required to use config again.
func Close(ctx context.Context) error {
	globalMu.Lock()
	m := globalManager
	globalManager = nil
	globalMu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close(ctx)
}

// resetForTest clears the global singleton so tests can re-initialize
// it in isolation.
func resetForTest() {
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
}
