package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/orbitflow/orbitflow/engine/deploy"
	"github.com/orbitflow/orbitflow/engine/dispatch"
	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/exec/logstream"
	"github.com/orbitflow/orbitflow/engine/exec/runners"
	"github.com/orbitflow/orbitflow/engine/httpapi"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
	"github.com/orbitflow/orbitflow/engine/router"
	"github.com/orbitflow/orbitflow/engine/webhook/verify"
	"github.com/orbitflow/orbitflow/pkg/config"
)

// deps bundles everything runServer builds before the HTTP server starts
// listening, plus the handles needed to tear it down on shutdown.
type deps struct {
	pool    *pgxpool.Pool
	cron    *dispatch.CronDispatcher
	handler *httpapi.Handlers
}

// databaseDSN returns cfg.ConnString if set, otherwise synthesizes one from
// the individual fields (ConnString is preferred; the parts are the
// fallback for environments that configure discrete fields instead).
func databaseDSN(cfg config.DatabaseConfig) string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Host, cfg.Port, cfg.DBName, sslMode,
	)
}

// buildDeps wires every C1-C8/A3/A4 collaborator: migrations, the Postgres
// pool, the five repos, the Event Router, every trigger Dispatcher, the
// Deployment Manager, the node Registry, the log Stream, the Engine, and
// finally the httpapi Service/Handlers bound to all of it.
//
// The dispatchers' Invoker and the Service that implements it are mutually
// dependent: every dispatcher is built against invoke, a closure over a
// *httpapi.Service variable that is only assigned once Service itself is
// constructed. invoke is never called until the HTTP server starts serving
// requests, by which point svc is always set.
func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	dsn := databaseDSN(cfg.Database)
	if err := pgstore.ApplyMigrations(ctx, dsn); err != nil {
		return nil, fmt.Errorf("server: apply migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("server: connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("server: ping postgres: %w", err)
	}

	workflows := pgstore.NewWorkflowRepo(pool)
	executions := pgstore.NewExecutionRepo(pool)
	logEntries := pgstore.NewLogEntryRepo(pool)
	deployments := pgstore.NewDeploymentRepo(pool)
	trigIndex := pgstore.NewTrigIndexRepo(pool)

	recordEvent := func(ctx context.Context, deliveryID, eventType, repoFullName string, payload any) error {
		return pgstore.RecordGitHubWebhookEvent(ctx, pool, deliveryID, eventType, repoFullName, payload)
	}
	rtr := router.New(trigIndex, recordEvent)

	var svc *httpapi.Service
	invoke := func(ctx context.Context, m router.Match) { svc.Invoke(ctx, m) }

	manual := dispatch.NewManualDispatcher(invoke)
	gh := dispatch.NewGitHubDispatcher(rtr, invoke)
	slack := dispatch.NewSlackDispatcher(rtr, invoke)
	cronDispatcher := dispatch.NewCronDispatcher(rtr, invoke)
	webhookDispatcher := dispatch.NewWebhookDispatcher(rtr, invoke)
	emailDispatcher := dispatch.NewEmailDispatcher(rtr, invoke)

	deployer := deploy.NewManager(deploy.Deps{
		Workflows:   workflows,
		Index:       trigIndex,
		Credentials: deploy.NoopCredentialResolver{},
		Dispatchers: map[string]dispatch.Dispatcher{
			"CRON":    cronDispatcher,
			"WEBHOOK": webhookDispatcher,
			"GITHUB":  gh,
			"SLACK":   slack,
			"EMAIL":   emailDispatcher,
			"MANUAL":  manual,
		},
	})

	registry := exec.NewRegistry()
	httpClient := resty.New().SetTimeout(cfg.Server.Timeout)
	registerRunners(registry, httpClient)

	metrics, err := buildLogMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("server: build log stream metrics: %w", err)
	}
	stream := logstream.New(1024, logstream.NewPostgresSink(logEntries), metrics)

	engine := exec.NewEngine(registry)
	engine.Logs = stream

	svc = httpapi.NewService(httpapi.Deps{
		Engine:         engine,
		Workflows:      workflows,
		Executions:     executions,
		Logs:           logEntries,
		Deployments:    deployments,
		Index:          trigIndex,
		Deployer:       deployer,
		Manual:         manual,
		GitHub:         gh,
		Slack:          slack,
		GitHubVerifier: buildVerifier("github", "GITHUB_WEBHOOK_SECRET"),
		SlackVerifier:  buildVerifier("slack", "SLACK_SIGNING_SECRET"),
		CORSEnabled:    cfg.Server.CORSEnabled,
	})

	handler := httpapi.NewHandlers(svc)
	return &deps{pool: pool, cron: cronDispatcher, handler: handler}, nil
}

func registerRunners(registry *exec.Registry, client *resty.Client) {
	registry.Register("TRIGGER", "", runners.Trigger())
	registry.Register("ACTION", "", runners.Action(client))
	registry.Register("AI_AGENT", "", runners.AIAgent(client))
	registry.Register("FLOW", "", runners.Flow())
	registry.Register("HUMAN_IN_THE_LOOP", "", runners.HumanInTheLoop())
	registry.Register("TOOL", "", runners.Tool(runners.ToolDeps{}))
	registry.Register("EXTERNAL_ACTION", "", runners.ExternalAction(runners.ExternalActionDeps{
		Client:        client,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}))
}

func buildLogMetrics(ctx context.Context) (*logstream.Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return logstream.NewMetrics(ctx, provider.Meter("orbitflow"))
}

// buildVerifier constructs a signature Verifier for strategy, reading its
// secret from envVar. If the env var isn't set, it falls back to "none" so
// the server still starts in local/dev environments, rather than failing
// the boot sequence over an optional integration.
func buildVerifier(strategy, envVar string) verify.Verifier {
	v, err := verify.New(verify.Config{Strategy: strategy, Secret: "env://" + envVar})
	if err != nil {
		v, _ = verify.New(verify.Config{Strategy: "none"})
	}
	return v
}

func (d *deps) close(ctx context.Context) {
	_ = ctx
	d.cron.Stop()
	d.pool.Close()
}
