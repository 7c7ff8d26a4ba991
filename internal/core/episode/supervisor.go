package episode

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/core/systems/physics"
	"github.com/zeusync/racer/internal/core/track"
	"github.com/zeusync/racer/internal/core/vehicle"
)

// Supervisor owns the episode lifecycle of one agent: it forwards actions to
// the vehicle, shapes rewards, enforces the per-checkpoint timeout and turns
// world events into progress or termination.
//
// A Supervisor is driven by exactly one tick loop and is not safe for
// concurrent use.
type Supervisor struct {
	cfg        Config
	body       physics.Body
	controller *vehicle.Controller
	tracker    *track.Tracker
	sink       Sink

	agentID   string
	publisher events.Publisher
	logger    log.Log

	startPose     physics.Pose
	startVelocity physics.Vec3
	startAngular  physics.Vec3

	state         State
	outcome       Outcome
	episodeID     string
	sinceCheckpt  time.Duration
	elapsed       time.Duration
	ticks         uint64
	reward        float64
	reached       int
	lastResult    Result
	hasLastResult bool
}

type Option func(*Supervisor)

// WithAgentID names the agent in results, events and logs.
func WithAgentID(id string) Option { return func(s *Supervisor) { s.agentID = id } }

// WithPublisher attaches an observability hook.
func WithPublisher(p events.Publisher) Option { return func(s *Supervisor) { s.publisher = p } }

// WithLogger sets the logger. The default discards output.
func WithLogger(l log.Log) Option { return func(s *Supervisor) { s.logger = l } }

// NewSupervisor captures the body's current pose and velocities as the start
// state restored by every Begin. The supervisor starts idle.
func NewSupervisor(cfg Config, body physics.Body, controller *vehicle.Controller, tracker *track.Tracker, sink Sink, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case body == nil:
		return nil, fmt.Errorf("%w: body", ErrMissingDependency)
	case controller == nil:
		return nil, fmt.Errorf("%w: controller", ErrMissingDependency)
	case tracker == nil:
		return nil, fmt.Errorf("%w: tracker", ErrMissingDependency)
	case sink == nil:
		return nil, fmt.Errorf("%w: sink", ErrMissingDependency)
	}

	s := &Supervisor{
		cfg:           cfg,
		body:          body,
		controller:    controller,
		tracker:       tracker,
		sink:          sink,
		startPose:     body.Pose(),
		startVelocity: body.Velocity(),
		startAngular:  body.AngularVelocity(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrNop(s.logger).With(log.String("agent_id", s.agentID))
	return s, nil
}

func (s *Supervisor) Config() Config                         { return s.cfg }
func (s *Supervisor) Tracker() *track.Tracker                { return s.tracker }
func (s *Supervisor) Body() physics.Body                     { return s.body }
func (s *Supervisor) AgentID() string                        { return s.agentID }
func (s *Supervisor) State() State                           { return s.state }
func (s *Supervisor) Outcome() Outcome                       { return s.outcome }
func (s *Supervisor) EpisodeID() string                      { return s.episodeID }
func (s *Supervisor) TimeSinceLastCheckpoint() time.Duration { return s.sinceCheckpt }
func (s *Supervisor) Ticks() uint64                          { return s.ticks }
func (s *Supervisor) Elapsed() time.Duration                 { return s.elapsed }

// EpisodeReward is the sum of deltas emitted this episode, kept for reporting only.
func (s *Supervisor) EpisodeReward() float64 { return s.reward }

// LastResult is the result of the most recently finished episode.
func (s *Supervisor) LastResult() (Result, bool) { return s.lastResult, s.hasLastResult }

// Begin starts a new episode from any state: the body is put back to its
// start pose and velocities, the tracker is reset and the timeout clock is
// zeroed. Abandoning a running episode reports it as interrupted on the
// event hook only, since the caller already knows it ended.
func (s *Supervisor) Begin() {
	if s.state == StateRunning {
		s.outcome = OutcomeInterrupted
		res := s.result()
		s.lastResult, s.hasLastResult = res, true
		events.Emit(s.publisher, events.EpisodeEnded, s.agentID, res)
	}

	s.body.SetPose(s.startPose)
	s.body.SetVelocity(s.startVelocity)
	s.body.SetAngularVelocity(s.startAngular)
	s.tracker.Reset()

	s.episodeID = uuid.NewString()
	s.state = StateRunning
	s.outcome = OutcomeNone
	s.sinceCheckpt = 0
	s.elapsed = 0
	s.ticks = 0
	s.reward = 0
	s.reached = 0

	events.Emit(s.publisher, events.EpisodeBegun, s.agentID, BegunPayload{EpisodeID: s.episodeID, AgentID: s.agentID})
}

// Step applies one tick: the action goes to the vehicle, the time penalty is
// emitted and the timeout clock advances. Exceeding the timeout terminates
// the episode with the timeout penalty.
func (s *Supervisor) Step(action vehicle.Action, dt time.Duration) (vehicle.Command, error) {
	if s.state != StateRunning {
		return vehicle.Command{}, ErrEpisodeNotRunning
	}
	if dt <= 0 {
		return vehicle.Command{}, ErrInvalidTick
	}

	cmd := s.controller.Apply(s.body, action, dt)
	s.ticks++
	s.elapsed += dt

	s.emitReward(ReasonTime, s.cfg.Rewards.Time)
	if s.cfg.Rewards.ThrottleBonusScale != 0 && cmd.Action.Throttle != 0 {
		s.emitReward(ReasonThrottle, cmd.Action.Throttle*s.cfg.Rewards.ThrottleBonusScale)
	}

	s.sinceCheckpt += dt
	if s.sinceCheckpt >= s.cfg.CheckpointTimeout {
		s.emitReward(ReasonTimeout, s.cfg.Rewards.Timeout)
		s.terminate(OutcomeTimeout)
	}
	return cmd, nil
}

// CheckpointEntered handles a trigger-zone entry. Events arriving outside a
// running episode are ignored.
func (s *Supervisor) CheckpointEntered(cp *track.Checkpoint) {
	if s.state != StateRunning || cp == nil {
		return
	}

	if !s.tracker.IsArrivalCorrect(cp) {
		if !s.cfg.PenalizeWrongCheckpoint {
			s.logger.Debug("Ignoring wrong checkpoint",
				log.String("checkpoint", cp.Label()),
				log.Int("expected_index", s.tracker.CurrentIndex()))
			return
		}
		s.emitReward(ReasonWrongCheckpoint, s.cfg.Rewards.WrongCheckpoint)
		s.terminate(OutcomeWrongCheckpoint)
		return
	}

	s.emitReward(ReasonCheckpoint, s.cfg.Rewards.Checkpoint)
	adv, err := s.tracker.Advance()
	if err != nil {
		// unreachable: a correct arrival implies the course is not complete
		s.logger.Error("Advance after correct arrival failed", log.Error(err))
		return
	}
	s.reached++
	s.sinceCheckpt = 0

	switch {
	case adv.Completed:
		s.emitReward(ReasonCompletion, s.cfg.Rewards.Completion)
		s.terminate(OutcomeCompleted)
	case adv.LapCompleted:
		s.emitReward(ReasonLap, s.cfg.Rewards.Completion)
	}
}

// WallCollision ends the episode with the wall penalty regardless of progress.
func (s *Supervisor) WallCollision() {
	if s.state != StateRunning {
		return
	}
	s.emitReward(ReasonWall, s.cfg.Rewards.Wall)
	s.terminate(OutcomeWallCollision)
}

// Interrupt ends a running episode without a penalty, for callers that stop
// driving before the episode ends on its own.
func (s *Supervisor) Interrupt() {
	if s.state != StateRunning {
		return
	}
	s.terminate(OutcomeInterrupted)
}

// ObservationSize is the length of the vector Observe produces.
func (s *Supervisor) ObservationSize() int { return s.cfg.Observation.Size() }

// Observe appends the current observation to dst. It has no side effects.
// On a completed course the direction component is zero.
func (s *Supervisor) Observe(dst []float64) []float64 {
	dir, err := s.tracker.NextCheckpointDirection(s.body.Pose().Position)
	if err != nil && !errors.Is(err, track.ErrCourseComplete) {
		s.logger.Warn("Next checkpoint direction unavailable", log.Error(err))
	}
	return BuildObservation(dst, s.cfg.Observation, s.body.Velocity(), dir, s.tracker.Progress())
}

func (s *Supervisor) emitReward(reason string, delta float64) {
	if delta == 0 {
		return
	}
	s.reward += delta
	s.sink.AddReward(delta)
	if s.publisher != nil {
		events.Emit(s.publisher, events.EpisodeReward, s.agentID, RewardPayload{
			EpisodeID: s.episodeID,
			Reason:    reason,
			Delta:     delta,
			Tick:      s.ticks,
		})
	}
}

// terminate must be the last thing a transition does: sinks may call Begin
// from EpisodeEnded.
func (s *Supervisor) terminate(outcome Outcome) {
	s.state = StateTerminated
	s.outcome = outcome
	res := s.result()
	s.lastResult, s.hasLastResult = res, true

	s.logger.Debug("Episode ended",
		log.String("episode_id", res.EpisodeID),
		log.String("outcome", outcome.String()),
		log.Float64("reward", res.Reward),
		log.Uint64("ticks", res.Ticks),
		log.Int("checkpoints_reached", res.CheckpointsReached))

	events.Emit(s.publisher, events.EpisodeEnded, s.agentID, res)
	s.sink.EpisodeEnded(res)
}

func (s *Supervisor) result() Result {
	return Result{
		EpisodeID:          s.episodeID,
		AgentID:            s.agentID,
		Outcome:            s.outcome,
		Reward:             s.reward,
		Ticks:              s.ticks,
		Elapsed:            s.elapsed,
		CheckpointsReached: s.reached,
		Laps:               s.tracker.Laps(),
		CourseFingerprint:  s.tracker.Course().Fingerprint(),
	}
}
