package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/racer/internal/arena"
	"github.com/zeusync/racer/internal/config"
	"github.com/zeusync/racer/internal/core/events/bus"
	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/core/observability/metrics"
	"github.com/zeusync/racer/internal/core/track"
	"github.com/zeusync/racer/internal/env"
	"github.com/zeusync/racer/internal/server"
	"github.com/zeusync/racer/internal/storage"
)

// Runtime is everything a racer command needs, wired from one Settings.
type Runtime struct {
	Settings config.Settings
	Logger   log.Log
	Bus      bus.EventBus
	Course   *track.Course
	Env      env.Config
	Metrics  *metrics.Recorder
	Store    *storage.Store // nil when storage is disabled
	Arena    *arena.Arena
	Server   *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideCourse,
	ProvideEnvConfig,
	ProvideMetrics,
	ProvideStore,
	ProvideArena,
	ProvideServer,
	wire.Struct(new(Runtime), "*"),
)

// ProvideLogger builds the logger. The cleanup flushes it.
func ProvideLogger(s config.Settings) (log.Log, func(), error) {
	opts, err := s.LogOptions()
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.NewWithOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideBus creates the shared bus. Debug logging of every event is
// subscribed only when the logger would print it.
func ProvideBus(logger log.Log) (bus.EventBus, error) {
	b := bus.New()
	if logger.Enabled(log.LevelDebug) {
		if _, err := b.Subscribe(bus.Wildcard, bus.Logging(logger)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func ProvideCourse(s config.Settings) (*track.Course, error) {
	return s.Course()
}

func ProvideEnvConfig(s config.Settings) (env.Config, error) {
	return s.EnvConfig()
}

func ProvideMetrics(b bus.EventBus) (*metrics.Recorder, error) {
	r, err := metrics.New()
	if err != nil {
		return nil, err
	}
	if _, err := r.Attach(b); err != nil {
		return nil, err
	}
	return r, nil
}

// ProvideStore opens the episode store and records episode.ended into it.
func ProvideStore(s config.Settings, b bus.EventBus, logger log.Log) (*storage.Store, func(), error) {
	if !s.Storage.Enabled {
		return nil, func() {}, nil
	}
	store, err := storage.Open(s.Storage.Config, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close episode store", log.Error(err))
		}
	}
	if _, err := store.Attach(b); err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

func ProvideArena(s config.Settings, envCfg env.Config, course *track.Course, b bus.EventBus, logger log.Log) (*arena.Arena, error) {
	return arena.New(s.Arena.Config, envCfg, course, s.Track.Walls,
		arena.WithPublisher(b),
		arena.WithLogger(logger))
}

// ProvideServer serves one environment per websocket session, all publishing
// to the shared bus.
func ProvideServer(s config.Settings, envCfg env.Config, course *track.Course, b bus.EventBus, logger log.Log) (*server.Server, error) {
	walls := s.Track.Walls
	factory := func(sessionID string) (*env.Environment, error) {
		return env.New(envCfg, course, walls,
			env.WithID(sessionID),
			env.WithPublisher(b),
			env.WithLogger(logger))
	}
	return server.NewServer(s.Server, factory, logger)
}
