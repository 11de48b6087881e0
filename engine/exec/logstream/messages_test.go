package logstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_Messages(t *testing.T) {
	ctx := t.Context()

	t.Run("Should template the workflow-started message", func(t *testing.T) {
		s := New(10, nil, nil)
		s.WorkflowStarted(ctx, "exec-1", "wf-1", "Onboarding", 3, "webhook")
		got := s.Query(Filter{ExecutionID: "exec-1"})
		require.Len(t, got, 1)
		assert.Equal(t, "🚀 Started workflow 'Onboarding' (3 nodes) via webhook", got[0].Message)
	})

	t.Run("Should template the node-completed message with duration", func(t *testing.T) {
		s := New(10, nil, nil)
		s.NodeCompleted(ctx, "exec-1", "wf-1", "n1", "Send email", "EXTERNAL_ACTION", "SLACK", 42*time.Millisecond)
		got := s.Query(Filter{ExecutionID: "exec-1"})
		require.Len(t, got, 1)
		assert.Equal(t, "✅ Completed Send email (42ms)", got[0].Message)
		assert.Equal(t, "info", got[0].Level)
	})

	t.Run("Should mark a node-failed message at error level", func(t *testing.T) {
		s := New(10, nil, nil)
		s.NodeFailed(ctx, "exec-1", "wf-1", "n1", "Call API", "ACTION", "HTTP", "temporary_error", "timed out", time.Second)
		got := s.Query(Filter{ExecutionID: "exec-1"})
		require.Len(t, got, 1)
		assert.Equal(t, "error", got[0].Level)
		assert.Contains(t, got[0].Message, "❌ Failed Call API")
		assert.Equal(t, "temporary_error", got[0].Fields["error_type"])
	})

	t.Run("Should use a success emoji for a COMPLETED workflow and failure emoji otherwise", func(t *testing.T) {
		s := New(10, nil, nil)
		s.WorkflowComplete(ctx, "exec-1", "wf-1", "COMPLETED", time.Second, nil)
		s.WorkflowComplete(ctx, "exec-2", "wf-1", "ERROR", time.Second, map[string]any{"error": "boom"})

		ok := s.Query(Filter{ExecutionID: "exec-1"})
		bad := s.Query(Filter{ExecutionID: "exec-2"})
		require.Len(t, ok, 1)
		require.Len(t, bad, 1)
		assert.Contains(t, ok[0].Message, "✅")
		assert.Contains(t, bad[0].Message, "❌")
		assert.Equal(t, "boom", bad[0].Fields["error"])
	})

	t.Run("Should template the human-interaction message with its token", func(t *testing.T) {
		s := New(10, nil, nil)
		s.HumanInteraction(ctx, "exec-1", "wf-1", "n1", "Manager review", "exec-1:n1:abc")
		got := s.Query(Filter{ExecutionID: "exec-1"})
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "🙋")
		assert.Equal(t, "exec-1:n1:abc", got[0].Fields["token"])
	})
}
