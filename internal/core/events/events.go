// Package events defines the structured events racing components emit at
// well-defined points. Emission is an observability hook only: a component
// with no publisher attached behaves exactly like one with a publisher.
package events

import "time"

// Event types.
const (
	TrackBuilt    = "track.built"
	TrackAdvanced = "track.advanced"
	TrackReset    = "track.reset"
	EpisodeBegun  = "episode.begun"
	EpisodeReward = "episode.reward"
	EpisodeEnded  = "episode.ended"
)

// Event is an immutable record of something that happened to one agent.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time
	Data      any
	Metadata  map[string]any
}

// New creates an event stamped with the current time.
func New(typ, source string, data any) Event {
	return Event{Type: typ, Source: source, Timestamp: time.Now(), Data: data}
}

// Publisher receives events. Implementations must be safe for concurrent use
// when shared between agent instances.
type Publisher interface {
	Publish(event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event) error

func (f PublisherFunc) Publish(e Event) error { return f(e) }

// Emit publishes through p when it is set and drops the result otherwise.
// Publishing failures never influence the caller.
func Emit(p Publisher, typ, source string, data any) {
	if p == nil {
		return
	}
	_ = p.Publish(New(typ, source, data))
}
