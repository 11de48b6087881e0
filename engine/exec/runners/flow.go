package runners

import (
	"context"
	"fmt"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// Flow builds the FLOW node runner (§4.7): IF/SWITCH/WHILE/LOOP/MERGE
// control-flow nodes. These emit outputs on one of several ports rather
// than a single "main"; downstream scheduling in the engine honors only
// the ports actually written, since connections whose FromPort has no
// matching output key are simply skipped at propagation time (§4.6.4).
func Flow() exec.Runner {
	return exec.RunnerFunc(func(_ context.Context, node workflow.Node, inputs map[string]any, _ exec.RunContext) (exec.RunnerOutput, error) {
		switch node.Subtype {
		case "IF":
			return runIf(node, inputs)
		case "SWITCH":
			return runSwitch(node, inputs)
		case "MERGE":
			return runMerge(inputs), nil
		case "WHILE", "LOOP":
			return runLoopGate(node, inputs)
		default:
			return exec.RunnerOutput{}, &exec.ValidationError{Msg: fmt.Sprintf("flow %q: unsupported subtype %q", node.ID, node.Subtype)}
		}
	})
}

// runIf evaluates configurations.condition_field (a dotted path into
// inputs) for truthiness, writing the input to either the "true" or
// "false" port.
func runIf(node workflow.Node, inputs map[string]any) (exec.RunnerOutput, error) {
	field, _ := node.Configurations["condition_field"].(string)
	val := exec.ExtractField(inputs, field, nil)
	port := "false"
	if isTruthy(val) {
		port = "true"
	}
	return exec.RunnerOutput{Outputs: map[string]any{port: inputs["main"]}}, nil
}

// runSwitch resolves configurations.condition_field and routes the input
// to the matching case's port, or "default" when no case's configurations
// entry equals the resolved value.
func runSwitch(node workflow.Node, inputs map[string]any) (exec.RunnerOutput, error) {
	field, _ := node.Configurations["condition_field"].(string)
	val := exec.ExtractField(inputs, field, nil)
	cases, _ := node.Configurations["cases"].(map[string]any)
	for port, want := range cases {
		if fmt.Sprintf("%v", want) == fmt.Sprintf("%v", val) {
			return exec.RunnerOutput{Outputs: map[string]any{port: inputs["main"]}}, nil
		}
	}
	return exec.RunnerOutput{Outputs: map[string]any{"default": inputs["main"]}}, nil
}

// runMerge passes every input port through unchanged on "main": MERGE has
// no branching logic, it exists to let multiple upstream branches converge
// on one downstream node.
func runMerge(inputs map[string]any) exec.RunnerOutput {
	return exec.RunnerOutput{Outputs: exec.WrapMain(inputs["main"])}
}

// runLoopGate is a single-iteration gate for WHILE/LOOP: it evaluates
// configurations.condition_field like IF, emitting on "continue" or "exit".
// A single topological pass visits each node once, so repeated iteration
// must be modeled by the workflow as separate unrolled nodes.
func runLoopGate(node workflow.Node, inputs map[string]any) (exec.RunnerOutput, error) {
	field, _ := node.Configurations["condition_field"].(string)
	val := exec.ExtractField(inputs, field, nil)
	port := "exit"
	if isTruthy(val) {
		port = "continue"
	}
	return exec.RunnerOutput{Outputs: map[string]any{port: inputs["main"]}}, nil
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}
