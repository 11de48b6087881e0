package logstream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetrics_Init(t *testing.T) {
	t.Run("Should register instruments and record without panic", func(t *testing.T) {
		m, err := NewMetrics(context.Background(), noop.NewMeterProvider().Meter("test"))
		require.NoError(t, err)
		m.RecordDuration(context.Background(), "ACTION", "HTTP", time.Millisecond)
		m.RecordPhase(context.Background(), "completed")
	})

	t.Run("Should no-op on a nil Metrics", func(t *testing.T) {
		var m *Metrics
		m.RecordDuration(context.Background(), "ACTION", "HTTP", time.Millisecond)
		m.RecordPhase(context.Background(), "completed")
	})
}
