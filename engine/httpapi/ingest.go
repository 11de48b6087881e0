package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitflow/orbitflow/engine/core"
)

const maxWebhookBodyBytes = 5 << 20 // 5 MiB, mirrors the A7 ingest boundary's default cap

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: "failed to read request body"})
		return nil, false
	}
	if len(body) > maxWebhookBodyBytes {
		respondProblem(c, &core.Problem{Status: http.StatusRequestEntityTooLarge, Detail: "request body too large"})
		return nil, false
	}
	return body, true
}

// handleManualWebhook implements §6 "POST /webhook/workflow/{workflow_id}":
// the envelope ingest surface that addresses one workflow directly by id,
// building trigger_data from the request's method/path/query/headers/body.
func (h *Handlers) handleManualWebhook(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	body, ok := readBody(c)
	if !ok {
		return
	}
	var decoded any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			decoded = string(body)
		}
	}
	headers := make(map[string]string, len(c.Request.Header))
	for k := range c.Request.Header {
		headers[k] = c.Request.Header.Get(k)
	}
	query := make(map[string]string, len(c.Request.URL.Query()))
	for k := range c.Request.URL.Query() {
		query[k] = c.Request.URL.Query().Get(k)
	}
	triggerData := map[string]any{
		"method":       c.Request.Method,
		"path":         c.Request.URL.Path,
		"query_params": query,
		"headers":      headers,
		"body":         decoded,
		"remote_addr":  c.ClientIP(),
	}
	h.svc.deps.Manual.Invoke(c.Request.Context(), workflowID, triggerData)
	respondAccepted(c, gin.H{"workflow_id": workflowID, "status": "accepted"})
}

// handleGitHubWebhook implements §6 "POST /webhooks/github": signature
// verification via X-Hub-Signature-256, then routing by repository and
// event type.
func (h *Handlers) handleGitHubWebhook(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	if err := h.svc.deps.GitHubVerifier.Verify(c.Request.Context(), c.Request, body); err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusUnauthorized, Detail: err.Error()})
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: "invalid JSON payload"})
		return
	}
	deliveryID := c.GetHeader("X-GitHub-Delivery")
	eventType := c.GetHeader("X-GitHub-Event")
	repoFullName, _ := repoFullNameFrom(payload)

	n, err := h.svc.deps.GitHub.Dispatch(c.Request.Context(), deliveryID, eventType, repoFullName, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"routed": n})
}

func repoFullNameFrom(payload map[string]any) (string, bool) {
	repo, ok := payload["repository"].(map[string]any)
	if !ok {
		return "", false
	}
	full, ok := repo["full_name"].(string)
	return full, ok
}

// handleSlackEvents implements §6 "POST /webhooks/slack/events": signature
// verification, then url_verification or routed event handling.
func (h *Handlers) handleSlackEvents(c *gin.Context) {
	body, ok := h.verifySlack(c)
	if !ok {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: "invalid JSON payload"})
		return
	}
	challenge, routed, err := h.svc.deps.Slack.HandleEvent(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	if challenge != "" {
		respondOK(c, gin.H{"challenge": challenge})
		return
	}
	respondOK(c, gin.H{"routed": routed})
}

// handleSlackInteractive and handleSlackCommands cover Slack's
// form-encoded interactive-component and slash-command callbacks (§6).
// Both are signature-verified the same way as /events and routed through
// the same workspace-keyed dispatcher, wrapping the decoded form as a
// generic event envelope.
func (h *Handlers) handleSlackInteractive(c *gin.Context) {
	h.handleSlackForm(c, "interactive")
}

func (h *Handlers) handleSlackCommands(c *gin.Context) {
	h.handleSlackForm(c, "command")
}

func (h *Handlers) handleSlackForm(c *gin.Context, kind string) {
	if _, ok := h.verifySlack(c); !ok {
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: "invalid form body"})
		return
	}
	fields := make(map[string]any, len(c.Request.PostForm))
	for k := range c.Request.PostForm {
		fields[k] = c.Request.PostForm.Get(k)
	}
	payload := map[string]any{
		"type":    "slack_" + kind,
		"team_id": c.Request.PostForm.Get("team_id"),
		"event":   fields,
	}
	_, routed, err := h.svc.deps.Slack.HandleEvent(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"routed": routed})
}

func (h *Handlers) verifySlack(c *gin.Context) ([]byte, bool) {
	body, ok := readBody(c)
	if !ok {
		return nil, false
	}
	if err := h.svc.deps.SlackVerifier.Verify(c.Request.Context(), c.Request, body); err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusUnauthorized, Detail: err.Error()})
		return nil, false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, true
}
