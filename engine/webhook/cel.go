package webhook

import (
	"context"
	"fmt"

	"github.com/orbitflow/orbitflow/engine/task"
)

// CELAdapter evaluates a webhook event's Filter expression against the
// inbound request's payload/headers/query, reusing the task package's
// shared CEL evaluator rather than compiling a second environment.
type CELAdapter struct {
	eval *task.CELEvaluator
}

// NewCELAdapter wraps eval for webhook filter evaluation.
func NewCELAdapter(eval *task.CELEvaluator) *CELAdapter {
	return &CELAdapter{eval: eval}
}

// Allow reports whether expr evaluates truthy against data.
func (a *CELAdapter) Allow(ctx context.Context, expr string, data map[string]any) (bool, error) {
	allowed, err := a.eval.Evaluate(ctx, expr, data)
	if err != nil {
		return false, fmt.Errorf("CEL filter evaluation failed: %w", err)
	}
	return allowed, nil
}
