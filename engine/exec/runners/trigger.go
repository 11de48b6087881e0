// Package runners implements the node Runner families required by §4.7:
// TRIGGER, AI_AGENT, EXTERNAL_ACTION, FLOW, HUMAN_IN_THE_LOOP, TOOL, and
// ACTION.
package runners

import (
	"context"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// Trigger is the passthrough runner for TRIGGER nodes: it emits the run's
// inbound trigger_data as the "main" output, unchanged.
func Trigger() exec.Runner {
	return exec.RunnerFunc(func(_ context.Context, _ workflow.Node, _ map[string]any, rc exec.RunContext) (exec.RunnerOutput, error) {
		return exec.RunnerOutput{Outputs: map[string]any{"main": rc.TriggerData}}, nil
	})
}
