package trigindex

import (
	"testing"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_RegisterAndQuery(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()

	t.Run("Should register rows and make them queryable", func(t *testing.T) {
		err := s.Register(ctx, "wf-1", []Row{
			{TriggerType: "CRON", IndexKey: "*/5 * * * *"},
			{TriggerType: "WEBHOOK", IndexKey: "/hooks/wf-1"},
		})
		require.NoError(t, err)

		rows, err := s.Query(ctx, "CRON", "*/5 * * * *")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "wf-1", rows[0].WorkflowID)
		assert.Equal(t, core.TriggerRowActive, rows[0].Status)
	})

	t.Run("Should re-registering replace the prior row set atomically", func(t *testing.T) {
		err := s.Register(ctx, "wf-1", []Row{{TriggerType: "CRON", IndexKey: "0 * * * *"}})
		require.NoError(t, err)

		rows, err := s.Query(ctx, "CRON", "*/5 * * * *")
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = s.Query(ctx, "CRON", "0 * * * *")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("Should require a workflow id", func(t *testing.T) {
		err := s.Register(ctx, "", []Row{{TriggerType: "CRON"}})
		assert.Error(t, err)
	})
}

func TestMemStore_Unregister(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()
	require.NoError(t, s.Register(ctx, "wf-1", []Row{{TriggerType: "CRON", IndexKey: "* * * * *"}}))

	require.NoError(t, s.Unregister(ctx, "wf-1"))

	rows, err := s.RowsFor(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	qrows, err := s.Query(ctx, "CRON", "* * * * *")
	require.NoError(t, err)
	assert.Empty(t, qrows)
}

func TestMemStore_UpdateStatus(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()
	require.NoError(t, s.Register(ctx, "wf-1", []Row{{TriggerType: "CRON", IndexKey: "* * * * *"}}))

	t.Run("Should exclude paused rows from routing but retain them", func(t *testing.T) {
		require.NoError(t, s.UpdateStatus(ctx, "wf-1", core.TriggerRowPaused))

		rows, err := s.Query(ctx, "CRON", "* * * * *")
		require.NoError(t, err)
		assert.Empty(t, rows)

		all, err := s.RowsFor(ctx, "wf-1")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, core.TriggerRowPaused, all[0].Status)
	})

	t.Run("Should error for an unregistered workflow", func(t *testing.T) {
		err := s.UpdateStatus(ctx, "ghost", core.TriggerRowActive)
		assert.Error(t, err)
	})
}

func TestMemStore_Stats(t *testing.T) {
	s := NewMemStore()
	ctx := t.Context()
	require.NoError(t, s.Register(ctx, "wf-1", []Row{
		{TriggerType: "GITHUB", IndexKey: "acme/widgets"},
		{TriggerType: "WEBHOOK", IndexKey: "/hooks/wf-1"},
	}))
	require.NoError(t, s.Register(ctx, "wf-2", []Row{
		{TriggerType: "GITHUB", IndexKey: "acme/widgets"},
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CountsByType["GITHUB"])
	assert.Equal(t, 1, stats.CountsByType["WEBHOOK"])
	assert.ElementsMatch(t, []string{"acme/widgets"}, stats.Repositories)
	assert.ElementsMatch(t, []string{"/hooks/wf-1"}, stats.WebhookPaths)
}
