package router

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// filterCache compiles and caches CEL detailed-filter programs, keyed by
// expression text, so a trigger's compiled filter is produced once at
// registration time and reused for every subsequent event.
type filterCache struct {
	mu    sync.RWMutex
	progs map[string]cel.Program
}

func newFilterCache() *filterCache {
	return &filterCache{progs: make(map[string]cel.Program)}
}

func (c *filterCache) compile(expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, ok := c.progs[expr]
	c.mu.RUnlock()
	if ok {
		return prg, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("event", cel.DynType),
		cel.Variable("trigger_config", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("router: cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("router: cel compile: %w", issues.Err())
	}
	prg, err = env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("router: cel program: %w", err)
	}

	c.mu.Lock()
	c.progs[expr] = prg
	c.mu.Unlock()
	return prg, nil
}

// evalFilter evaluates a compiled boolean detailed-filter expression against
// an event payload and a row's trigger_config.
func (c *filterCache) evalFilter(expr string, event, triggerConfig map[string]any) (bool, error) {
	prg, err := c.compile(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"event":          event,
		"trigger_config": triggerConfig,
	})
	if err != nil {
		return false, fmt.Errorf("router: cel eval: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("router: cel expression did not return a bool, got %T", out.Value())
	}
	return result, nil
}
