package bus

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/racer/internal/core/events"
)

type testObserver struct {
	mu             sync.Mutex
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []events.Event
	_, err := b.Subscribe(events.TrackAdvanced, func(e events.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(events.New(events.TrackAdvanced, "tester", 3)))
	require.NoError(t, b.Publish(events.New(events.TrackReset, "tester", nil)))

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Data)
	assert.Equal(t, "tester", got[0].Source)
}

func TestWildcardAndOrder(t *testing.T) {
	b := New()
	var order []string
	_, _ = b.Subscribe(Wildcard, func(e events.Event) error { order = append(order, "wild:"+e.Type); return nil })
	_, _ = b.Subscribe(events.EpisodeEnded, func(e events.Event) error { order = append(order, "first"); return nil })
	_, _ = b.Subscribe(events.EpisodeEnded, func(e events.Event) error { order = append(order, "second"); return nil })

	require.NoError(t, b.Publish(events.New(events.EpisodeEnded, "s", nil)))
	assert.Equal(t, []string{"first", "second", "wild:episode.ended"}, order)
}

func TestSubscribeValidation(t *testing.T) {
	b := New()
	_, err := b.Subscribe("", func(events.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyEventType)
	_, err = b.Subscribe("x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("x", func(events.Event) error { count++; return nil })
	require.NoError(t, err)

	_ = b.Publish(events.New("x", "s", nil))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Unsubscribe(nil))
	_ = b.Publish(events.New("x", "s", nil))

	assert.Equal(t, 1, count)
	assert.False(t, sub.IsActive())
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, "x", sub.EventType())
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	b := New()
	e1 := errors.New("one")
	e2 := errors.New("two")
	_, _ = b.Subscribe("x", func(events.Event) error { return e1 })
	_, _ = b.Subscribe("x", func(events.Event) error { return e2 })

	err := b.Publish(events.New("x", "s", nil))
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestFiltersDropSilently(t *testing.T) {
	b := New()
	count := 0
	_, _ = b.Subscribe("x", func(events.Event) error { count++; return nil })
	b.AddObserver(&testObserver{})

	reject := func(events.Event) bool { return false }
	require.NoError(t, b.PublishWithFilters(events.New("x", "s", nil), reject))
	assert.Equal(t, 0, count)
	assert.Equal(t, uint64(1), b.GetMetrics().DroppedByFilters)
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(events.Event) error { return nil })
	_ = b.Publish(events.New("e", "s", nil))
	assert.Equal(t, Metrics{}, b.GetMetrics(), "metrics stay zero without observers")

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(events.New("e", "s", nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Publish(events.New("e", "s", nil))
	assert.Equal(t, uint64(1), b.GetMetrics().Published)
}

func TestConcurrentPublish(t *testing.T) {
	b := New()
	var mu sync.Mutex
	count := 0
	_, _ = b.Subscribe("e", func(events.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = b.Publish(events.New("e", "s", j))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, count)
}

func TestEmitNilPublisher(t *testing.T) {
	assert.NotPanics(t, func() { events.Emit(nil, "x", "s", nil) })

	var got events.Event
	events.Emit(events.PublisherFunc(func(e events.Event) error {
		got = e
		return errors.New("ignored")
	}), "x", "s", 1)
	assert.Equal(t, "x", got.Type)
}
