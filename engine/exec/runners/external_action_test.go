package runners

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

func TestExternalAction(t *testing.T) {
	t.Run("Should dispatch SLACK send_message through the slack adapter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"posted":true}`))
		}))
		defer srv.Close()

		r := ExternalAction(ExternalActionDeps{Client: resty.New()})
		node := workflow.Node{
			ID: "notify", Type: workflow.NodeExternalAction, Subtype: "SLACK",
			Configurations: map[string]any{"action_type": "send_message", "webhook_url": srv.URL, "channel": "#general"},
		}
		out, err := r.Run(t.Context(), node, map[string]any{"main": map[string]any{"text": "hi"}}, exec.RunContext{})
		require.NoError(t, err)
		assert.Equal(t, true, out.Outputs["main"].(map[string]any)["posted"])
	})

	t.Run("Should fall back to the generic adapter for an unregistered action_type", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		r := ExternalAction(ExternalActionDeps{Client: resty.New()})
		node := workflow.Node{
			ID: "custom", Type: workflow.NodeExternalAction, Subtype: "CUSTOM",
			Configurations: map[string]any{"action_type": "default_action", "endpoint": srv.URL},
		}
		out, err := r.Run(t.Context(), node, map[string]any{"main": map[string]any{"x": 1}}, exec.RunContext{})
		require.NoError(t, err)
		assert.Equal(t, true, out.Outputs["main"].(map[string]any)["ok"])
	})

	t.Run("Should retry a 503 as a TemporaryError and eventually succeed", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		r := ExternalAction(ExternalActionDeps{Client: resty.New(), RetryDelay: time.Millisecond, RetryAttempts: 5})
		node := workflow.Node{
			ID: "custom", Type: workflow.NodeExternalAction, Subtype: "CUSTOM",
			Configurations: map[string]any{"action_type": "default_action", "endpoint": srv.URL},
		}
		out, err := r.Run(t.Context(), node, map[string]any{"main": map[string]any{}}, exec.RunContext{})
		require.NoError(t, err)
		assert.Equal(t, true, out.Outputs["main"].(map[string]any)["ok"])
		assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
	})

	t.Run("Should reject GitHub create_issue with no repository as a ValidationError", func(t *testing.T) {
		r := ExternalAction(ExternalActionDeps{Client: resty.New()})
		node := workflow.Node{
			ID: "issue", Type: workflow.NodeExternalAction, Subtype: "GITHUB",
			Configurations: map[string]any{"action_type": "create_issue"},
		}
		_, err := r.Run(t.Context(), node, nil, exec.RunContext{})
		require.Error(t, err)
		var verr *exec.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}
