package runners

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// Action builds the ACTION node runner (§4.7): in-workflow data shaping,
// either a declarative transform over its inputs or an HTTP call described
// by configurations.method/url/headers/body.
func Action(client *resty.Client) exec.Runner {
	return exec.RunnerFunc(func(ctx context.Context, node workflow.Node, inputs map[string]any, _ exec.RunContext) (exec.RunnerOutput, error) {
		switch node.Subtype {
		case "HTTP":
			return runHTTPAction(ctx, client, node, inputs)
		default:
			return runTransformAction(node, inputs)
		}
	})
}

func runTransformAction(node workflow.Node, inputs map[string]any) (exec.RunnerOutput, error) {
	raw, _ := node.Configurations["transform"].(string)
	cfg := exec.ParseTransform(raw)
	result, err := exec.ApplyTransform(cfg, inputs["main"])
	if err != nil {
		return exec.RunnerOutput{}, &exec.ValidationError{Msg: fmt.Sprintf("action %q: transform: %v", node.ID, err)}
	}
	return exec.RunnerOutput{Outputs: exec.WrapMain(result)}, nil
}

func runHTTPAction(ctx context.Context, client *resty.Client, node workflow.Node, inputs map[string]any) (exec.RunnerOutput, error) {
	method, _ := node.Configurations["method"].(string)
	url, _ := node.Configurations["url"].(string)
	if url == "" {
		return exec.RunnerOutput{}, &exec.ValidationError{Msg: fmt.Sprintf("action %q: configurations.url is required", node.ID)}
	}
	if method == "" {
		method = "GET"
	}
	headers, _ := node.Configurations["headers"].(map[string]any)

	req := client.R().SetContext(ctx)
	for k, v := range headers {
		if s, ok := v.(string); ok {
			req.SetHeader(k, s)
		}
	}
	if body, ok := inputs["main"]; ok {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return exec.RunnerOutput{}, &exec.TemporaryError{Msg: fmt.Sprintf("action %q: http call", node.ID), Err: err}
	}
	if resp.IsError() {
		return exec.RunnerOutput{}, fmt.Errorf("action %q: http call returned %s", node.ID, resp.Status())
	}

	return exec.RunnerOutput{Outputs: exec.WrapMain(map[string]any{
		"status_code": resp.StatusCode(),
		"body":        string(resp.Body()),
	})}, nil
}
