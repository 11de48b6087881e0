package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitflow/orbitflow/pkg/logger"
)

// Handlers wraps a Service with the gin handler methods for every §6
// endpoint.
type Handlers struct {
	svc *Service
}

// NewHandlers builds Handlers over svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// NewRouter builds the gin.Engine serving every §6 endpoint: the ingest
// surface, the execution control API, and the deployment API.
func NewRouter(h *Handlers, corsEnabled bool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if corsEnabled {
		r.Use(corsMiddleware())
	}

	r.GET("/health", func(c *gin.Context) { c.Status(200) })

	r.POST("/webhook/workflow/:workflow_id", h.handleManualWebhook)
	r.POST("/webhooks/github", h.handleGitHubWebhook)
	r.POST("/webhooks/slack/events", h.handleSlackEvents)
	r.POST("/webhooks/slack/interactive", h.handleSlackInteractive)
	r.POST("/webhooks/slack/commands", h.handleSlackCommands)

	r.POST("/workflows/:workflow_id/execute", h.handleExecuteWorkflow)
	r.GET("/executions/:execution_id", h.handleGetExecution)
	r.POST("/executions/:execution_id/cancel", h.handleCancelExecution)
	r.GET("/executions/:execution_id/logs", h.handleExecutionLogs)
	r.POST("/executions/:execution_id/nodes/:node_id/resume", h.handleResumeNode)

	r.POST("/workflows/:workflow_id/deploy", h.handleDeploy)
	r.POST("/workflows/:workflow_id/undeploy", h.handleUndeploy)
	r.PUT("/workflows/:workflow_id", h.handleUpdate)
	r.POST("/workflows/:workflow_id/pause", h.handlePause)
	r.POST("/workflows/:workflow_id/resume", h.handleResumeTriggers)
	r.GET("/workflows/:workflow_id/status", h.handleDeploymentStatus)
	r.GET("/workflows", h.handleListDeployments)
	r.GET("/index/statistics", h.handleIndexStatistics)

	return r
}

// requestLogger emits one Info line per request through the context
// logger, mirroring the §4.8 execution-log style of "event via detail"
// messages rather than a structured access-log library.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		log := logger.FromContext(c.Request.Context())
		log.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// corsMiddleware is a minimal permissive-CORS layer: no gin-contrib/cors
// dependency exists in this module's stack, so Server.CORSEnabled gates a
// small handwritten handler instead.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Hub-Signature-256, X-Slack-Signature, X-Slack-Request-Timestamp")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
