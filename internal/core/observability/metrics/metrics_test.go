package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/events/bus"
	"github.com/zeusync/racer/internal/core/track"
)

func TestRecorderCountsBusTraffic(t *testing.T) {
	r, err := NewWithMeter(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	b := bus.New()
	_, err = r.Attach(b)
	require.NoError(t, err)

	publish := func(typ string, data any) {
		require.NoError(t, b.Publish(events.New(typ, "agent-000", data)))
	}
	publish(events.EpisodeBegun, episode.BegunPayload{EpisodeID: "e1"})
	publish(events.TrackAdvanced, track.AdvancedPayload{Label: "CP0"})
	publish(events.TrackAdvanced, track.AdvancedPayload{Label: "CP1", Advance: track.Advance{LapCompleted: true}})
	publish(events.EpisodeEnded, episode.Result{Outcome: episode.OutcomeCompleted, Reward: 27})
	publish(events.EpisodeEnded, episode.Result{Outcome: episode.OutcomeTimeout, Reward: -5})
	publish(events.EpisodeEnded, episode.Result{Outcome: episode.OutcomeTimeout, Reward: -5})

	snap := r.Snapshot()
	assert.Equal(t, map[string]int64{"completed": 1, "timeout": 2}, snap.Episodes)
	assert.Equal(t, int64(2), snap.Checkpoints)
	assert.Equal(t, int64(1), snap.Laps)
	assert.Equal(t, int64(6), snap.Deliveries)
	assert.Zero(t, snap.DeliveryErrors)

	snap.Episodes["completed"] = 100
	assert.Equal(t, int64(1), r.Snapshot().Episodes["completed"], "snapshot is a copy")
}

func TestRecorderCountsDeliveryErrors(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	b := bus.New()
	_, err = r.Attach(b)
	require.NoError(t, err)
	_, err = b.Subscribe(events.EpisodeEnded, func(events.Event) error { return errors.New("sink down") })
	require.NoError(t, err)

	assert.Error(t, b.Publish(events.New(events.EpisodeEnded, "a", episode.Result{})))
	assert.Equal(t, int64(1), r.Snapshot().DeliveryErrors)
	assert.Equal(t, int64(1), r.Snapshot().Episodes["none"])
}
