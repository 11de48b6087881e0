package runners

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/schema"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// aiProviderEndpoint is the chat-completion endpoint for each supported
// AI_AGENT subtype (§4.7).
var aiProviderEndpoint = map[string]string{
	"OPENAI_CHATGPT":   "https://api.openai.com/v1/chat/completions",
	"ANTHROPIC_CLAUDE": "https://api.anthropic.com/v1/messages",
	"GOOGLE_GEMINI":    "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent",
}

// AIAgent builds the AI_AGENT node runner (§4.7): assembles a provider
// request from configurations (model, system_prompt, temperature,
// max_tokens, function_calling, safety_settings), calls the provider, and
// normalizes the reply into {content, metadata, token_usage,
// function_calls}. Attached TOOL/MEMORY children are resolved by id from
// node.AttachedNodes by the caller before invocation; this runner only
// shapes the provider call.
func AIAgent(client *resty.Client) exec.Runner {
	return exec.RunnerFunc(func(ctx context.Context, node workflow.Node, inputs map[string]any, _ exec.RunContext) (exec.RunnerOutput, error) {
		url, ok := aiProviderEndpoint[node.Subtype]
		if !ok {
			return exec.RunnerOutput{}, &exec.ValidationError{
				Msg: fmt.Sprintf("ai_agent %q: unsupported provider subtype %q", node.ID, node.Subtype),
			}
		}

		req := buildProviderRequest(node, inputs)
		var raw map[string]any
		resp, err := client.R().SetContext(ctx).SetBody(req).SetResult(&raw).Post(url)
		if err != nil {
			return exec.RunnerOutput{}, &exec.TemporaryError{Msg: fmt.Sprintf("ai_agent %q: provider call", node.ID), Err: err}
		}
		if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
			return exec.RunnerOutput{}, &exec.TemporaryError{Msg: fmt.Sprintf("ai_agent %q: provider returned %s", node.ID, resp.Status())}
		}
		if resp.IsError() {
			return exec.RunnerOutput{}, fmt.Errorf("ai_agent %q: provider returned %s", node.ID, resp.Status())
		}

		normalized := normalizeProviderResponse(raw)
		if err := validateAgainstOutputSchema(ctx, node, normalized); err != nil {
			return exec.RunnerOutput{}, &exec.ValidationError{Msg: err.Error()}
		}
		return exec.RunnerOutput{Outputs: exec.WrapMain(normalized)}, nil
	})
}

// validateAgainstOutputSchema checks the normalized reply against
// configurations.output_schema when the node declares one. No declared
// schema means no constraint.
func validateAgainstOutputSchema(ctx context.Context, node workflow.Node, normalized map[string]any) error {
	raw, ok := node.Configurations["output_schema"].(map[string]any)
	if !ok {
		return nil
	}
	s := schema.Schema(raw)
	validator := schema.NewParamsValidator(normalized, &s, node.ID)
	return validator.Validate(ctx)
}

func buildProviderRequest(node workflow.Node, inputs map[string]any) map[string]any {
	cfg := node.Configurations
	req := map[string]any{
		"model":            cfg["model"],
		"system_prompt":    cfg["system_prompt"],
		"temperature":      cfg["temperature"],
		"max_tokens":       cfg["max_tokens"],
		"function_calling": cfg["function_calling"],
		"safety_settings":  cfg["safety_settings"],
		"input":            inputs["main"],
	}
	return req
}

// normalizeProviderResponse maps a provider's raw JSON reply onto the
// common {content, metadata, token_usage, function_calls} shape (§4.7).
func normalizeProviderResponse(raw map[string]any) map[string]any {
	content := exec.ExtractField(raw, "content", "")
	return map[string]any{
		"content":        content,
		"metadata":       exec.ExtractField(raw, "metadata", map[string]any{}),
		"token_usage":    exec.ExtractField(raw, "usage", map[string]any{}),
		"function_calls": exec.ExtractField(raw, "function_calls", []any{}),
	}
}
