package runners

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// HumanInTheLoop builds the HUMAN_IN_THE_LOOP node runner (§4.7): it always
// suspends, returning an opaque resume token. The engine records
// WAITING_HUMAN and the run only advances past this node via the external
// resume API (§6 "HIL resumption"), never from a return value here.
func HumanInTheLoop() exec.Runner {
	return exec.RunnerFunc(func(_ context.Context, node workflow.Node, _ map[string]any, rc exec.RunContext) (exec.RunnerOutput, error) {
		token := fmt.Sprintf("%s:%s:%s", rc.ExecutionID, node.ID, uuid.New().String())
		return exec.RunnerOutput{Waiting: true, Token: token}, nil
	})
}
