// Package dispatch implements the Trigger Dispatchers (C3): each family owns
// its own ingress and in-memory registration state, and calls the Event
// Router (C2) once an inbound event needs matching against deployed
// workflows.
package dispatch

import (
	"context"

	"github.com/orbitflow/orbitflow/engine/router"
)

// Invoker is called once per routed match; the engine invocation itself is
// out of scope for this package.
type Invoker func(ctx context.Context, match router.Match)

// Dispatcher is the per-family registration contract. Only the dispatcher
// itself mutates its own state; concurrent deploy/undeploy races are
// prevented by the per-workflow lock the Deployment Manager (C4) holds
// around the full register/unregister call.
type Dispatcher interface {
	Register(ctx context.Context, workflowID string, triggerType string, indexKeys []string) error
	Unregister(ctx context.Context, workflowID string) error
}
