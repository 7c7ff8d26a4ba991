// Package metrics turns bus traffic into OpenTelemetry instruments. Without a
// configured global provider the instruments are no-ops and only the local
// snapshot counts.
package metrics

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/events/bus"
	"github.com/zeusync/racer/internal/core/track"
)

const instrumentationName = "github.com/zeusync/racer/internal/core/observability/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

var _ bus.Observer = (*Recorder)(nil)

// Snapshot is a point-in-time copy of the local counters.
type Snapshot struct {
	Episodes       map[string]int64
	Checkpoints    int64
	Laps           int64
	Deliveries     int64
	DeliveryErrors int64
}

// Recorder counts episodes, checkpoints and bus deliveries.
type Recorder struct {
	episodes    metric.Int64Counter
	reward      metric.Float64Histogram
	ticks       metric.Int64Histogram
	checkpoints metric.Int64Counter
	laps        metric.Int64Counter
	deliveries  metric.Int64Counter
	deliveryDur metric.Int64Histogram

	mu   sync.Mutex
	snap Snapshot
}

// New creates the instruments on the global meter provider.
func New() (*Recorder, error) {
	return NewWithMeter(meter())
}

func NewWithMeter(m metric.Meter) (*Recorder, error) {
	r := &Recorder{snap: Snapshot{Episodes: make(map[string]int64)}}

	var err error
	if r.episodes, err = m.Int64Counter("racer.episodes.ended",
		metric.WithDescription("Episodes ended, by outcome")); err != nil {
		return nil, fmt.Errorf("creating episodes counter: %w", err)
	}
	if r.reward, err = m.Float64Histogram("racer.episode.reward",
		metric.WithDescription("Cumulative reward of ended episodes")); err != nil {
		return nil, fmt.Errorf("creating reward histogram: %w", err)
	}
	if r.ticks, err = m.Int64Histogram("racer.episode.ticks",
		metric.WithDescription("Ticks per ended episode")); err != nil {
		return nil, fmt.Errorf("creating ticks histogram: %w", err)
	}
	if r.checkpoints, err = m.Int64Counter("racer.checkpoints.reached",
		metric.WithDescription("Correct checkpoint arrivals")); err != nil {
		return nil, fmt.Errorf("creating checkpoints counter: %w", err)
	}
	if r.laps, err = m.Int64Counter("racer.laps.completed",
		metric.WithDescription("Completed laps")); err != nil {
		return nil, fmt.Errorf("creating laps counter: %w", err)
	}
	if r.deliveries, err = m.Int64Counter("racer.bus.deliveries",
		metric.WithDescription("Bus deliveries, by event type and result")); err != nil {
		return nil, fmt.Errorf("creating deliveries counter: %w", err)
	}
	if r.deliveryDur, err = m.Int64Histogram("racer.bus.delivery.duration",
		metric.WithUnit("us"),
		metric.WithDescription("Time spent delivering one event to all handlers")); err != nil {
		return nil, fmt.Errorf("creating delivery duration histogram: %w", err)
	}
	return r, nil
}

// Handler consumes track and episode events. Subscribe it with bus.Wildcard.
func (r *Recorder) Handler() bus.EventHandler {
	return func(e events.Event) error {
		ctx := context.Background()
		switch data := e.Data.(type) {
		case episode.Result:
			attrs := metric.WithAttributes(attribute.String("outcome", data.Outcome.String()))
			r.episodes.Add(ctx, 1, attrs)
			r.reward.Record(ctx, data.Reward, attrs)
			r.ticks.Record(ctx, int64(data.Ticks), attrs)

			r.mu.Lock()
			r.snap.Episodes[data.Outcome.String()]++
			r.mu.Unlock()
		case track.AdvancedPayload:
			r.checkpoints.Add(ctx, 1)
			if data.Advance.LapCompleted {
				r.laps.Add(ctx, 1)
			}

			r.mu.Lock()
			r.snap.Checkpoints++
			if data.Advance.LapCompleted {
				r.snap.Laps++
			}
			r.mu.Unlock()
		}
		return nil
	}
}

// Attach subscribes the recorder to every event on b and observes its deliveries.
func (r *Recorder) Attach(b bus.EventBus) (bus.Subscription, error) {
	sub, err := b.Subscribe(bus.Wildcard, r.Handler())
	if err != nil {
		return nil, err
	}
	b.AddObserver(r)
	return sub, nil
}

func (r *Recorder) OnDelivered(eventType string, _ int, err error, durationMicros int64) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("error", err != nil))
	r.deliveries.Add(ctx, 1, attrs)
	r.deliveryDur.Record(ctx, durationMicros, metric.WithAttributes(attribute.String("event_type", eventType)))

	r.mu.Lock()
	r.snap.Deliveries++
	if err != nil {
		r.snap.DeliveryErrors++
	}
	r.mu.Unlock()
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.snap
	out.Episodes = make(map[string]int64, len(r.snap.Episodes))
	for k, v := range r.snap.Episodes {
		out.Episodes[k] = v
	}
	return out
}
