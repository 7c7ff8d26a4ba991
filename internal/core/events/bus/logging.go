package bus

import (
	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/observability/log"
)

// Logging returns a handler that writes every event at debug level. It is
// meant for Wildcard subscriptions while diagnosing a run.
func Logging(l log.Log) EventHandler {
	l = log.OrNop(l)
	return func(e events.Event) error {
		if !l.Enabled(log.LevelDebug) {
			return nil
		}
		l.Debug("Event published",
			log.String("event_type", e.Type),
			log.String("source", e.Source),
			log.Any("data", e.Data))
		return nil
	}
}
