package httpapi

import (
	"github.com/orbitflow/orbitflow/engine/deploy"
	"github.com/orbitflow/orbitflow/engine/dispatch"
	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
	"github.com/orbitflow/orbitflow/engine/trigindex"
	"github.com/orbitflow/orbitflow/engine/webhook/verify"
)

// Deps bundles every collaborator the HTTP layer needs: the execution
// engine, the persistence repos behind it, the trigger index, the
// deployment manager, and the manual dispatcher used to address a
// workflow directly by id (§6 "POST /webhook/workflow/{workflow_id}").
type Deps struct {
	Engine      *exec.Engine
	Workflows   *pgstore.WorkflowRepo
	Executions  *pgstore.ExecutionRepo
	Logs        *pgstore.LogEntryRepo
	Deployments *pgstore.DeploymentRepo
	Index       trigindex.Store
	Deployer    *deploy.Manager
	Manual      *dispatch.ManualDispatcher
	GitHub      *dispatch.GitHubDispatcher
	Slack       *dispatch.SlackDispatcher

	// GitHubVerifier and SlackVerifier check inbound webhook signatures
	// (engine/webhook/verify). A nil verifier rejects every request, so
	// cmd/server must always construct one (verify.Config{Strategy: "none"}
	// for local/dev use).
	GitHubVerifier verify.Verifier
	SlackVerifier  verify.Verifier

	// CORSEnabled gates the permissive-CORS middleware (pkg/config's
	// Server.CORSEnabled).
	CORSEnabled bool
}
