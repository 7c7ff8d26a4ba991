package env

import (
	"fmt"
	"time"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/core/systems"
	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/track"
	"github.com/zeusync/racer/internal/core/vehicle"
	"github.com/zeusync/racer/internal/core/world"
)

// Config assembles one environment instance.
type Config struct {
	Vehicle vehicle.Settings
	Episode episode.Config
	World   world.Config
	Policy  track.AdvancePolicy
	Tick    time.Duration
	Start   physics.Pose
}

// DefaultConfig returns the stock tuning with a 50 Hz tick.
func DefaultConfig() Config {
	return Config{
		Vehicle: vehicle.DefaultSettings(),
		Episode: episode.DefaultConfig(),
		World:   world.DefaultConfig(),
		Policy:  track.Strict,
		Tick:    20 * time.Millisecond,
	}
}

// Spec describes the observation and action shapes of an environment.
type Spec struct {
	ObservationSize int                     `json:"observation_size"`
	ActionSize      int                     `json:"action_size"`
	Mode            episode.ObservationMode `json:"mode"`
}

// StepResult is what one Step reports back to the trainer.
type StepResult struct {
	Observation []float64
	Reward      float64
	Done        bool
	Outcome     episode.Outcome
}

type Option func(*options)

type options struct {
	id        string
	publisher events.Publisher
	logger    log.Log
}

// WithID names the environment. It becomes the agent ID of every episode.
func WithID(id string) Option { return func(o *options) { o.id = id } }

func WithPublisher(p events.Publisher) Option { return func(o *options) { o.publisher = p } }

func WithLogger(l log.Log) Option { return func(o *options) { o.logger = l } }

// Environment is a single-agent, fixed-step racing environment. Each tick
// the action is forwarded to the supervisor, then the body is integrated and
// contacts are detected. It is not safe for concurrent use; run one
// Environment per goroutine.
type Environment struct {
	id      string
	cfg     Config
	body    *physics.RigidBody
	tracker *track.Tracker
	acc     *episode.Accumulator
	sup     *episode.Supervisor
	world   *world.World
	systems *systems.Pipeline
	logger  log.Log
}

// New builds an idle environment over the course. Call Reset before Step.
func New(cfg Config, course *track.Course, walls []world.Wall, opts ...Option) (*Environment, error) {
	if course == nil {
		return nil, ErrNilCourse
	}
	if cfg.Tick <= 0 {
		return nil, ErrInvalidTick
	}
	o := options{id: "agent"}
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.OrNop(o.logger).With(log.String("env_id", o.id))

	controller, err := vehicle.NewController(cfg.Vehicle)
	if err != nil {
		return nil, fmt.Errorf("vehicle: %w", err)
	}
	tracker, err := track.NewTracker(course, track.WithPolicy(cfg.Policy), track.WithPublisher(o.publisher, o.id))
	if err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}

	body := physics.NewRigidBody(o.id, cfg.Start, cfg.Vehicle.NormalDrag)
	acc := episode.NewAccumulator()
	sup, err := episode.NewSupervisor(cfg.Episode, body, controller, tracker, acc,
		episode.WithAgentID(o.id),
		episode.WithPublisher(o.publisher),
		episode.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("episode: %w", err)
	}
	w, err := world.New(cfg.World, body, course, walls, sup, logger)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}

	return &Environment{
		id:      o.id,
		cfg:     cfg,
		body:    body,
		tracker: tracker,
		acc:     acc,
		sup:     sup,
		world:   w,
		systems: systems.NewPipeline(body, w),
		logger:  logger,
	}, nil
}

func (e *Environment) ID() string                      { return e.id }
func (e *Environment) Config() Config                  { return e.cfg }
func (e *Environment) Body() *physics.RigidBody        { return e.body }
func (e *Environment) Tracker() *track.Tracker         { return e.tracker }
func (e *Environment) Supervisor() *episode.Supervisor { return e.sup }
func (e *Environment) World() *world.World             { return e.world }

func (e *Environment) Spec() Spec {
	return Spec{
		ObservationSize: e.sup.ObservationSize(),
		ActionSize:      vehicle.ActionSize,
		Mode:            e.cfg.Episode.Observation,
	}
}

// Reset begins a new episode and returns the first observation.
func (e *Environment) Reset() ([]float64, error) {
	e.sup.Begin()
	if err := e.systems.Reset(); err != nil {
		return nil, err
	}
	e.acc.Drain()
	return e.sup.Observe(nil), nil
}

// Step advances one tick. Once Done is reported, further Steps fail with
// episode.ErrEpisodeNotRunning until Reset.
func (e *Environment) Step(action vehicle.Action) (StepResult, error) {
	if _, err := e.sup.Step(action, e.cfg.Tick); err != nil {
		return StepResult{}, err
	}
	if e.sup.State() == episode.StateRunning {
		if err := e.systems.FixedUpdate(e.cfg.Tick); err != nil {
			return StepResult{}, err
		}
	}

	reward, done := e.acc.Drain()
	res := StepResult{
		Observation: e.sup.Observe(nil),
		Reward:      reward,
		Done:        done,
	}
	if done {
		res.Outcome = e.sup.Outcome()
	}
	return res, nil
}

// Observe returns the current observation without advancing time.
func (e *Environment) Observe() []float64 { return e.sup.Observe(nil) }

// Total is the reward accumulated since the environment was created.
func (e *Environment) Total() float64 { return e.acc.Total() }

// Episodes counts the episodes that ended in this environment.
func (e *Environment) Episodes() int { return e.acc.Episodes() }
