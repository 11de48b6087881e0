package runners

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// ProviderAdapter performs one EXTERNAL_ACTION call against a single
// provider action_type, returning the node's raw output payload.
type ProviderAdapter func(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (map[string]any, error)

type adapterKey struct {
	subtype    string
	actionType string
}

// adapterRegistry maps (subtype, action_type) to a ProviderAdapter; an
// absent entry falls back to genericAdapter.
var adapterRegistry = map[adapterKey]ProviderAdapter{
	{"SLACK", "send_message"}:          slackSendMessage,
	{"GITHUB", "create_issue"}:         githubCreateIssue,
	{"GOOGLE_CALENDAR", "create_event"}: googleCalendarCreateEvent,
	{"NOTION", "create_page"}:          notionCreatePage,
}

// ExternalActionDeps configures the ExternalAction runner's retry policy
// (§7 TemporaryError, bounded by performance_config.retry_attempts).
type ExternalActionDeps struct {
	Client        *resty.Client
	RetryAttempts uint64
	RetryDelay    time.Duration
}

// ExternalAction builds the EXTERNAL_ACTION node runner (§4.7): dispatch to
// a provider adapter keyed on configurations.action_type, retrying
// TemporaryError failures with exponential backoff.
func ExternalAction(deps ExternalActionDeps) exec.Runner {
	return exec.RunnerFunc(func(ctx context.Context, node workflow.Node, inputs map[string]any, _ exec.RunContext) (exec.RunnerOutput, error) {
		actionType, _ := node.Configurations["action_type"].(string)
		adapter, ok := adapterRegistry[adapterKey{node.Subtype, actionType}]
		if !ok {
			adapter = genericAdapter
		}

		backoff := retryBackoff(deps)
		var result map[string]any
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			out, callErr := adapter(ctx, deps.Client, node, inputs)
			if callErr != nil {
				var temp *exec.TemporaryError
				if errors.As(callErr, &temp) {
					return retry.RetryableError(callErr)
				}
				return callErr
			}
			result = out
			return nil
		})
		if err != nil {
			return exec.RunnerOutput{}, err
		}
		return exec.RunnerOutput{Outputs: exec.WrapMain(result)}, nil
	})
}

func retryBackoff(deps ExternalActionDeps) retry.Backoff {
	delay := deps.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	attempts := deps.RetryAttempts
	if attempts == 0 {
		attempts = 3
	}
	backoff := retry.NewExponential(delay)
	backoff = retry.WithCappedDuration(30*time.Second, backoff)
	backoff = retry.WithJitter(100*time.Millisecond, backoff)
	backoff = retry.WithMaxRetries(attempts, backoff)
	return backoff
}

func endpoint(node workflow.Node, key string) (string, error) {
	url, _ := node.Configurations[key].(string)
	if url == "" {
		return "", &exec.ValidationError{Msg: fmt.Sprintf("action %q: configurations.%s is required", node.ID, key)}
	}
	return url, nil
}

func postJSON(ctx context.Context, client *resty.Client, url string, body map[string]any) (map[string]any, error) {
	var result map[string]any
	resp, err := client.R().SetContext(ctx).SetBody(body).SetResult(&result).Post(url)
	if err != nil {
		return nil, &exec.TemporaryError{Msg: "provider call", Err: err}
	}
	if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
		return nil, &exec.TemporaryError{Msg: fmt.Sprintf("provider returned %s", resp.Status())}
	}
	if resp.IsError() {
		return nil, fmt.Errorf("provider returned %s", resp.Status())
	}
	return result, nil
}

func slackSendMessage(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	url, err := endpoint(node, "webhook_url")
	if err != nil {
		return nil, err
	}
	text := exec.ExtractField(inputs, "main.text", inputs["main"])
	return postJSON(ctx, client, url, map[string]any{
		"channel":  node.Configurations["channel"],
		"username": node.Configurations["username"],
		"text":     text,
	})
}

func githubCreateIssue(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	repo, _ := node.Configurations["repository"].(string)
	if repo == "" {
		return nil, &exec.ValidationError{Msg: fmt.Sprintf("action %q: configurations.repository is required", node.ID)}
	}
	url := fmt.Sprintf("https://api.github.com/repos/%s/issues", repo)
	return postJSON(ctx, client, url, map[string]any{
		"title": exec.ExtractField(inputs, "main.title", "Untitled"),
		"body":  exec.ExtractField(inputs, "main.body", ""),
	})
}

func googleCalendarCreateEvent(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	calendarID, _ := node.Configurations["calendar_id"].(string)
	if calendarID == "" {
		calendarID = "primary"
	}
	url := fmt.Sprintf("https://www.googleapis.com/calendar/v3/calendars/%s/events", calendarID)
	return postJSON(ctx, client, url, map[string]any{
		"summary": exec.ExtractField(inputs, "main.summary", ""),
		"start":   exec.ExtractField(inputs, "main.start", nil),
		"end":     exec.ExtractField(inputs, "main.end", nil),
	})
}

func notionCreatePage(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	databaseID, _ := node.Configurations["database_id"].(string)
	if databaseID == "" {
		return nil, &exec.ValidationError{Msg: fmt.Sprintf("action %q: configurations.database_id is required", node.ID)}
	}
	return postJSON(ctx, client, "https://api.notion.com/v1/pages", map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": exec.ExtractField(inputs, "main.properties", map[string]any{}),
	})
}

// genericAdapter is the default_action fallback (§4.6.3): POST the node's
// main input to configurations.endpoint.
func genericAdapter(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (map[string]any, error) {
	url, err := endpoint(node, "endpoint")
	if err != nil {
		return nil, err
	}
	body, _ := inputs["main"].(map[string]any)
	return postJSON(ctx, client, url, body)
}
