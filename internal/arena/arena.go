package arena

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/zeusync/racer/internal/core/episode"
	"github.com/zeusync/racer/internal/core/events"
	"github.com/zeusync/racer/internal/core/observability/log"
	"github.com/zeusync/racer/internal/core/track"
	"github.com/zeusync/racer/internal/core/world"
	"github.com/zeusync/racer/internal/env"
	"github.com/zeusync/racer/pkg/concurrent"
)

// Config sizes an arena run.
type Config struct {
	Agents   int `json:"agents" yaml:"agents"`
	Episodes int `json:"episodes" yaml:"episodes"` // per agent
	// MaxSteps caps one episode. Zero leaves it to the checkpoint timeout,
	// which never fires for a car that keeps lapping under the wrap policy.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
	// Concurrency bounds the agents simulated at once. Zero runs all of them.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

func DefaultConfig() Config {
	return Config{Agents: 4, Episodes: 10, MaxSteps: 10_000}
}

func (c Config) Validate() error {
	switch {
	case c.Agents <= 0:
		return fmt.Errorf("%w: agents must be positive", ErrInvalidConfig)
	case c.Episodes <= 0:
		return fmt.Errorf("%w: episodes must be positive", ErrInvalidConfig)
	case c.MaxSteps < 0 || c.Concurrency < 0:
		return fmt.Errorf("%w: max_steps and concurrency must not be negative", ErrInvalidConfig)
	}
	return nil
}

// PolicyFactory builds the policy of one agent. Policies are never shared
// between agents.
type PolicyFactory func(agent int) env.Policy

// Report aggregates the results of a run.
type Report struct {
	Results    []episode.Result
	Outcomes   map[episode.Outcome]int
	MeanReward float64
	Contacts   world.Stats // summed over agents
	Elapsed    time.Duration
}

// agentRun is what one agent brings back from its environment.
type agentRun struct {
	results  []episode.Result
	contacts world.Stats
}

func newReport(runs []agentRun, elapsed time.Duration) Report {
	r := Report{Outcomes: make(map[episode.Outcome]int), Elapsed: elapsed}
	for _, run := range runs {
		r.Results = append(r.Results, run.results...)
		r.Contacts.CheckpointEntries += run.contacts.CheckpointEntries
		r.Contacts.WallContacts += run.contacts.WallContacts
	}
	for _, res := range r.Results {
		r.Outcomes[res.Outcome]++
		r.MeanReward += res.Reward
	}
	if len(r.Results) > 0 {
		r.MeanReward /= float64(len(r.Results))
	}
	return r
}

// Arena runs independent environments over one course in parallel. Agents
// share nothing mutable except the publisher, which must be safe for
// concurrent use.
type Arena struct {
	cfg       Config
	envCfg    env.Config
	course    *track.Course
	walls     []world.Wall
	publisher events.Publisher
	logger    log.Log
}

type Option func(*Arena)

func WithPublisher(p events.Publisher) Option { return func(a *Arena) { a.publisher = p } }

func WithLogger(l log.Log) Option { return func(a *Arena) { a.logger = l } }

func New(cfg Config, envCfg env.Config, course *track.Course, walls []world.Wall, opts ...Option) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if course == nil {
		return nil, env.ErrNilCourse
	}
	a := &Arena{cfg: cfg, envCfg: envCfg, course: course, walls: slices.Clone(walls)}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = log.OrNop(a.logger)
	return a, nil
}

// AgentID names the environment of agent i.
func AgentID(i int) string { return fmt.Sprintf("agent-%03d", i) }

// Run simulates every agent for the configured number of episodes. Results
// are ordered by agent, then episode. The first failing agent cancels the
// others.
func (a *Arena) Run(ctx context.Context, factory PolicyFactory) (Report, error) {
	if factory == nil {
		return Report{}, ErrNilFactory
	}
	started := time.Now()
	a.logger.Info("Arena run started",
		log.Int("agents", a.cfg.Agents),
		log.Int("episodes", a.cfg.Episodes),
		log.Uint64("course_fingerprint", a.course.Fingerprint()))

	perAgent, err := concurrent.Map(ctx, concurrent.Range(a.cfg.Agents), a.cfg.Concurrency,
		func(ctx context.Context, _ int, agent int) (agentRun, error) {
			return a.runAgent(ctx, agent, factory(agent))
		})
	if err != nil {
		a.logger.Error("Arena run failed", log.Error(err))
		return Report{}, err
	}

	report := newReport(perAgent, time.Since(started))
	a.logger.Info("Arena run finished",
		log.Int("episodes", len(report.Results)),
		log.Float64("mean_reward", report.MeanReward),
		log.Duration("elapsed", report.Elapsed))
	return report, nil
}

func (a *Arena) runAgent(ctx context.Context, agent int, policy env.Policy) (agentRun, error) {
	id := AgentID(agent)
	e, err := env.New(a.envCfg, a.course, a.walls,
		env.WithID(id),
		env.WithPublisher(a.publisher),
		env.WithLogger(a.logger))
	if err != nil {
		return agentRun{}, fmt.Errorf("%s: %w", id, err)
	}

	run := agentRun{results: make([]episode.Result, 0, a.cfg.Episodes)}
	for i := 0; i < a.cfg.Episodes; i++ {
		res, err := env.Rollout(ctx, e, policy, a.cfg.MaxSteps)
		if err != nil {
			return agentRun{}, fmt.Errorf("%s episode %d: %w", id, i, err)
		}
		run.results = append(run.results, res)
	}
	run.contacts = e.World().Stats()

	a.logger.Debug("Agent finished",
		log.String("agent_id", id),
		log.Int("episodes", e.Episodes()),
		log.Float64("total_reward", e.Total()),
		log.Uint64("checkpoint_entries", run.contacts.CheckpointEntries),
		log.Uint64("wall_contacts", run.contacts.WallContacts))
	return run, nil
}
